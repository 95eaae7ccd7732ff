// Package domain defines the persistence models and enumerations of the CRM:
// contacts moving through a sales pipeline, the interactions that audit every
// mutation, users, and their notifications. These types are mapped with GORM
// and shared by the repository, service and HTTP layers.
package domain

// Stage is the pipeline position of a contact ("statut" on the wire).
// The wire values are the labels used by the CRM client.
type Stage string

const (
	StageProspect    Stage = "Prospect"
	StageContacted   Stage = "Contacté"
	StageQualified   Stage = "Qualifié"
	StageProposal    Stage = "Proposition"
	StageNegotiation Stage = "Négociation"
	StageClient      Stage = "Client"
	StageLost        Stage = "Perdu"
)

// Stages lists every pipeline stage in board order.
var Stages = []Stage{
	StageProspect,
	StageContacted,
	StageQualified,
	StageProposal,
	StageNegotiation,
	StageClient,
	StageLost,
}

// Valid reports whether s is one of the seven pipeline stages.
func (s Stage) Valid() bool {
	for _, st := range Stages {
		if s == st {
			return true
		}
	}
	return false
}

// Temperature qualifies how engaged a contact is.
type Temperature string

const (
	TemperatureHot  Temperature = "Chaud"
	TemperatureWarm Temperature = "Tiède"
	TemperatureCold Temperature = "Froid"
)

// Valid reports whether t is a known temperature. The empty value is
// accepted because temperature is optional.
func (t Temperature) Valid() bool {
	switch t {
	case "", TemperatureHot, TemperatureWarm, TemperatureCold:
		return true
	}
	return false
}

// Source is the acquisition channel of a contact.
type Source string

const (
	SourceWebsite   Source = "Site web"
	SourceReferral  Source = "Référence"
	SourceLinkedIn  Source = "LinkedIn"
	SourceTradeFair Source = "Salon"
	SourceEmail     Source = "Email"
	SourcePhone     Source = "Téléphone"
	SourceOther     Source = "Autre"
)

// Sources lists the accepted acquisition channels.
var Sources = []Source{
	SourceWebsite,
	SourceReferral,
	SourceLinkedIn,
	SourceTradeFair,
	SourceEmail,
	SourcePhone,
	SourceOther,
}

// Valid reports whether s is a known source. The empty value is accepted.
func (s Source) Valid() bool {
	if s == "" {
		return true
	}
	for _, v := range Sources {
		if s == v {
			return true
		}
	}
	return false
}

// InteractionType classifies an audit event.
type InteractionType string

const (
	InteractionNote         InteractionType = "Note"
	InteractionModification InteractionType = "Modification"
	InteractionCall         InteractionType = "Appel"
	InteractionEmail        InteractionType = "Email"
	InteractionMeeting      InteractionType = "Réunion"
)

// Valid reports whether t is a known interaction type.
func (t InteractionType) Valid() bool {
	switch t {
	case InteractionNote, InteractionModification, InteractionCall, InteractionEmail, InteractionMeeting:
		return true
	}
	return false
}
