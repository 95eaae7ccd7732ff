package repo

// Schema whitelists the attribute names a caller may use against one record
// kind. Keys are the wire names (the JSON attribute names); values are the
// SQL column names. Nothing outside the whitelist reaches a query.
type Schema struct {
	// Fields are usable in Filter predicates and Update field lists.
	Fields map[string]string
	// Sorts are usable as sort keys, optionally prefixed with "-".
	Sorts map[string]string
	// DefaultSort applies when the caller passes an empty sort key.
	DefaultSort string
}

var ContactSchema = Schema{
	Fields: map[string]string{
		"id":                   "id",
		"prenom":               "first_name",
		"nom":                  "last_name",
		"societe":              "company",
		"email":                "email",
		"telephone":            "phone",
		"adresse":              "address",
		"notes":                "notes",
		"source":               "source",
		"statut":               "statut",
		"valeur_estimee":       "valeur_estimee",
		"temperature":          "temperature",
		"tags":                 "tags",
		"derniere_interaction": "derniere_interaction",
	},
	Sorts: map[string]string{
		"created_date":         "created_at",
		"updated_date":         "updated_at",
		"derniere_interaction": "derniere_interaction",
		"nom":                  "last_name",
		"societe":              "company",
	},
	DefaultSort: "-updated_date",
}

var InteractionSchema = Schema{
	Fields: map[string]string{
		"id":         "id",
		"contact_id": "contact_id",
		"type":       "type",
	},
	Sorts: map[string]string{
		"date_interaction": "date_interaction",
		"created_date":     "created_at",
	},
	DefaultSort: "-date_interaction",
}

var UserSchema = Schema{
	Fields: map[string]string{
		"id":          "id",
		"email":       "email",
		"full_name":   "full_name",
		"role":        "role",
		"department":  "department",
		"phone":       "phone",
		"last_seen":   "last_seen",
		"preferences": "preferences",
	},
	Sorts: map[string]string{
		"last_seen":    "last_seen",
		"full_name":    "full_name",
		"created_date": "created_at",
	},
	DefaultSort: "-last_seen",
}

var NotificationSchema = Schema{
	Fields: map[string]string{
		"id":      "id",
		"user_id": "user_id",
		"read":    "read",
		"type":    "type",
	},
	Sorts: map[string]string{
		"created_date": "created_at",
	},
	DefaultSort: "-created_date",
}
