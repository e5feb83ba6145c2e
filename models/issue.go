package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IssueStatus enum
type IssueStatus string

const (
	StatusOpen       IssueStatus = "open"
	StatusInProgress IssueStatus = "in progress"
	StatusPending    IssueStatus = "pending"
	StatusClosed     IssueStatus = "closed"
	StatusResolved   IssueStatus = "resolved"
)

// Valid reports whether s is one of the five recognized statuses.
// Transitions between statuses are unrestricted; only membership is checked.
func (s IssueStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusPending, StatusClosed, StatusResolved:
		return true
	}
	return false
}

// Fixed civic category taxonomy. The image classifier is prompted with this
// exact list; anything else it returns is mapped to CategoryOther.
const (
	CategoryRoads       = "Roads & Transport"
	CategoryLighting    = "Street Lighting"
	CategoryGarbage     = "Garbage & Sanitation"
	CategoryWater       = "Water Supply & Drainage"
	CategoryElectricity = "Electricity"
	CategorySafety      = "Public Safety"
	CategoryOther       = "Other"
)

var issueCategories = map[string]bool{
	CategoryRoads:       true,
	CategoryLighting:    true,
	CategoryGarbage:     true,
	CategoryWater:       true,
	CategoryElectricity: true,
	CategorySafety:      true,
	CategoryOther:       true,
}

func ValidCategory(category string) bool {
	return issueCategories[category]
}

// Coordinates is always fully populated; creation rejects partial input.
type Coordinates struct {
	Latitude  float64 `bson:"latitude" json:"latitude"`
	Longitude float64 `bson:"longitude" json:"longitude"`
}

// Issue represents a geolocated civic issue reported by a user.
// Voters is logically a set: it is only ever mutated through $addToSet/$pull,
// and votes == len(voters) holds after every write.
type Issue struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID          string              `bson:"userId" json:"userId"`
	Title           string              `bson:"title" json:"title"`
	UserMessage     string              `bson:"userMessage,omitempty" json:"userMessage,omitempty"`
	Category        string              `bson:"category" json:"category"`
	Status          IssueStatus         `bson:"status" json:"status"`
	ImageURL        string              `bson:"imageUrl" json:"imageUrl"`
	Coordinates     Coordinates         `bson:"coordinates" json:"coordinates"`
	City            string              `bson:"city" json:"city"`
	State           string              `bson:"state" json:"state"`
	Votes           int                 `bson:"votes" json:"votes"`
	Voters          []string            `bson:"voters" json:"voters"`
	AssignedOfficer *primitive.ObjectID `bson:"assignedOfficer,omitempty" json:"assignedOfficer,omitempty"`
	CreatedAt       time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// Place renders the "city, state" fragment used in notification copy.
// A missing half drops the comma instead of rendering a dangling one.
func (i *Issue) Place() string {
	switch {
	case i.City == "":
		return i.State
	case i.State == "":
		return i.City
	}
	return i.City + ", " + i.State
}
