package domain

import (
	"time"

	"github.com/pawfam/backend/internal/lifecycle"
)

// Adoption application statuses
const (
	AdoptionPending     lifecycle.Status = "pending"
	AdoptionUnderReview lifecycle.Status = "under_review"
	AdoptionApproved    lifecycle.Status = "approved"
	AdoptionRejected    lifecycle.Status = "rejected"
	AdoptionScheduled   lifecycle.Status = "scheduled"
	AdoptionWithdrawn   lifecycle.Status = "withdrawn"
)

// AdoptionLifecycle governs adoption applications. A visit can be scheduled
// from any open state; withdrawn is the applicant's own revoke.
var AdoptionLifecycle = lifecycle.New(lifecycle.Config{
	Name: "application",
	States: []lifecycle.Status{
		AdoptionPending, AdoptionUnderReview, AdoptionApproved,
		AdoptionRejected, AdoptionScheduled, AdoptionWithdrawn,
	},
	Initial:  AdoptionPending,
	Terminal: []lifecycle.Status{AdoptionApproved, AdoptionRejected, AdoptionWithdrawn},
	Transitions: map[lifecycle.Status][]lifecycle.Status{
		AdoptionPending:     {AdoptionUnderReview, AdoptionScheduled, AdoptionWithdrawn},
		AdoptionUnderReview: {AdoptionApproved, AdoptionRejected, AdoptionScheduled, AdoptionWithdrawn},
		AdoptionScheduled:   {AdoptionUnderReview, AdoptionApproved, AdoptionRejected, AdoptionWithdrawn},
	},
	Cancellable: []lifecycle.Status{AdoptionPending, AdoptionUnderReview, AdoptionScheduled},
	CancelTo:    AdoptionWithdrawn,
	Editable:    []lifecycle.Status{AdoptionPending, AdoptionUnderReview, AdoptionScheduled},
})

// AdoptionPet is a snapshot of the pet listing applied for
type AdoptionPet struct {
	ID      string
	Name    string
	Type    string
	Breed   string
	Age     string
	Shelter string
}

// ApplicantInfo holds the applicant's contact details
type ApplicantInfo struct {
	FullName string
	Email    string
	Phone    string
	Address  string
}

// Experience describes the applicant's pet background
type Experience struct {
	Level            string
	Details          string
	OtherPets        string
	OtherPetsDetails string
}

// VisitSchedule is the requested shelter visit
type VisitSchedule struct {
	Date time.Time
	Time string // HH:MM
}

// AdoptionApplication represents a request to adopt a listed pet
type AdoptionApplication struct {
	ID             string
	UserID         string
	Pet            AdoptionPet
	PersonalInfo   ApplicantInfo
	Experience     Experience
	VisitSchedule  VisitSchedule
	AdoptionReason string
	Status         lifecycle.Status
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
