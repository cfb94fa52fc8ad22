package models_test

import (
	"testing"

	"vetline/backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// TestCallbackBeforeCreate_GeneratesUUID verifies that the BeforeCreate hook generates a valid UUID.
func TestCallbackBeforeCreate_GeneratesUUID(t *testing.T) {
	cb := &models.CallbackRequest{
		UserID: "vet-1",
		Name:   "Alex",
		Phone:  "+441234567890",
		Reason: "missed a counsellor",
	}

	assert.Empty(t, cb.ID, "ID should be empty before BeforeCreate")

	err := cb.BeforeCreate(nil) // nil *gorm.DB is acceptable for this hook

	assert.NoError(t, err)
	assert.NotEmpty(t, cb.ID)
	_, parseErr := uuid.Parse(cb.ID)
	assert.NoError(t, parseErr, "ID must be a valid UUID string")
	assert.Equal(t, "open", cb.Status, "a new callback starts open")
}

// TestCallbackBeforeCreate_PreservesExistingFields verifies the hook doesn't overwrite set values.
func TestCallbackBeforeCreate_PreservesExistingFields(t *testing.T) {
	existingID := uuid.New().String()
	cb := &models.CallbackRequest{
		ID:     existingID,
		UserID: "vet-2",
		Status: "contacted",
	}

	err := cb.BeforeCreate(nil)

	assert.NoError(t, err)
	assert.Equal(t, existingID, cb.ID)
	assert.Equal(t, "contacted", cb.Status)
}
