package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OfficerRole enum
type OfficerRole string

const (
	RoleOfficer    OfficerRole = "officer"
	RoleSupervisor OfficerRole = "supervisor"
)

func (r OfficerRole) Valid() bool {
	return r == RoleOfficer || r == RoleSupervisor
}

// Officer is a municipal staff member who triages and resolves issues.
// Email is unique across the directory (enforced by index, see config.EnsureIndexes).
type Officer struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName           string             `bson:"fullName" json:"fullName"`
	Email              string             `bson:"email" json:"email"`
	Phone              string             `bson:"phone" json:"phone"`
	Role               OfficerRole        `bson:"role" json:"role"`
	AssignedCategories []string           `bson:"assignedCategories" json:"assignedCategories"`
	AssignedLocations  []string           `bson:"assignedLocations" json:"assignedLocations"`
	CreatedAt          time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time          `bson:"updatedAt" json:"updatedAt"`
}
