// Package events handles event emission for project lifecycle changes
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/poised-pms/poised/pkg/kafka"
	"github.com/poised-pms/poised/pkg/models"
	"github.com/poised-pms/poised/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Emitter publishes project lifecycle events. A nil *Emitter is a valid
// no-op emitter, so callers never need an enabled check.
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitProjectCreated emits a project.created event
func (e *Emitter) EmitProjectCreated(ctx context.Context, project *models.Project) error {
	if e == nil {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitProjectCreated")
	defer span.End()

	data := map[string]any{
		"schema_version": SchemaVersion,
		"building_type":  project.Info.BuildingType,
		"erf_number":     project.Info.ERF,
		"total_fee":      project.Info.TotalFee,
		"deadline":       project.Info.DeadlineString(),
		"customer":       project.Customer.Name,
	}
	dataJSON, _ := json.Marshal(data)

	event := &kafka.ProjectEvent{
		EventID:       uuid.NewString(),
		EventType:     "project.created",
		ProjectNumber: project.Info.Number,
		ProjectName:   project.Info.Name,
		Data:          dataJSON,
	}

	if err := e.producer.PublishProjectEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit project.created event")
		return err
	}

	return nil
}

// EmitProjectFinalized emits a project.finalized event
func (e *Emitter) EmitProjectFinalized(ctx context.Context, project *models.Project) error {
	if e == nil {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitProjectFinalized")
	defer span.End()

	data := map[string]any{
		"schema_version": SchemaVersion,
		"complete_date":  project.Info.CompleteDate(),
		"total_owed":     project.Info.TotalOwed(),
	}
	dataJSON, _ := json.Marshal(data)

	event := &kafka.ProjectEvent{
		EventID:       uuid.NewString(),
		EventType:     "project.finalized",
		ProjectNumber: project.Info.Number,
		ProjectName:   project.Info.Name,
		Data:          dataJSON,
	}

	if err := e.producer.PublishProjectEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit project.finalized event")
		return err
	}

	return nil
}

// EmitProjectDeleted emits a project.deleted event
func (e *Emitter) EmitProjectDeleted(ctx context.Context, number int, name string) error {
	if e == nil {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitProjectDeleted")
	defer span.End()

	event := &kafka.ProjectEvent{
		EventID:       uuid.NewString(),
		EventType:     "project.deleted",
		ProjectNumber: number,
		ProjectName:   name,
	}

	if err := e.producer.PublishProjectEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit project.deleted event")
		return err
	}

	return nil
}

// EmitPersonRenamed emits a person.renamed event
func (e *Emitter) EmitPersonRenamed(ctx context.Context, project *models.Project, role models.Role, oldName, newName string) error {
	if e == nil {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitPersonRenamed")
	defer span.End()

	data := map[string]any{
		"schema_version": SchemaVersion,
		"role":           string(role),
		"old_name":       oldName,
		"new_name":       newName,
	}
	dataJSON, _ := json.Marshal(data)

	event := &kafka.ProjectEvent{
		EventID:       uuid.NewString(),
		EventType:     "person.renamed",
		ProjectNumber: project.Info.Number,
		ProjectName:   project.Info.Name,
		Data:          dataJSON,
	}

	if err := e.producer.PublishProjectEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit person.renamed event")
		return err
	}

	return nil
}
