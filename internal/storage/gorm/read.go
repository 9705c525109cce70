package gormstorage

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sailsitl/sailsim/internal/model"
	"gorm.io/gorm"
)

// LoadRun finds a run by UUID.
func LoadRun(db *gorm.DB, runUUID string) (model.Run, error) {
	id, err := uuid.Parse(runUUID)
	if err != nil {
		return model.Run{}, fmt.Errorf("run uuid: %w", err)
	}
	var run model.Run
	if err := db.Where("uuid = ?", id).First(&run).Error; err != nil {
		return model.Run{}, fmt.Errorf("load run %s: %w", runUUID, err)
	}
	return run, nil
}

// ListRuns returns every run, newest first.
func ListRuns(db *gorm.DB) ([]model.Run, error) {
	var runs []model.Run
	if err := db.Order("id desc").Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// LoadSamples returns the samples of a run in step order.
func LoadSamples(db *gorm.DB, runID uint) ([]model.StepSample, error) {
	var samples []model.StepSample
	if err := db.Where("run_id = ?", runID).Order("step").Find(&samples).Error; err != nil {
		return nil, fmt.Errorf("load samples of run %d: %w", runID, err)
	}
	return samples, nil
}
