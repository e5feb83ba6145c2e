package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIssuePlace(t *testing.T) {
	issue := &Issue{City: "Pune", State: "Maharashtra"}
	assert.Equal(t, "Pune, Maharashtra", issue.Place())

	issue = &Issue{City: "Pune"}
	assert.Equal(t, "Pune", issue.Place())

	issue = &Issue{State: "Maharashtra"}
	assert.Equal(t, "Maharashtra", issue.Place())

	issue = &Issue{}
	assert.Equal(t, "", issue.Place())
}

func TestIssueStatusValid(t *testing.T) {
	for _, s := range []IssueStatus{StatusOpen, StatusInProgress, StatusPending, StatusClosed, StatusResolved} {
		assert.True(t, s.Valid(), string(s))
	}
	assert.False(t, IssueStatus("escalated").Valid())
	assert.False(t, IssueStatus("").Valid())
}

func TestValidCategory(t *testing.T) {
	assert.True(t, ValidCategory(CategoryRoads))
	assert.True(t, ValidCategory(CategoryOther))
	assert.False(t, ValidCategory("Wildlife"))
	assert.False(t, ValidCategory(""))
}
