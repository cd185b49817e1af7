package database

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/zatekoja/doctorconsole/internal/domain/entities"
	"github.com/zatekoja/doctorconsole/internal/domain/providers"
	"github.com/zatekoja/doctorconsole/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/doctorconsole/pkg/errors"
	"github.com/zatekoja/doctorconsole/pkg/validation"
)

//go:embed schema.sql
var schema string

// ClinicAdapter implements the clinic backend contracts directly against the
// clinic's Postgres database
type ClinicAdapter struct {
	client *postgres.Client
	db     *goqu.Database
	now    func() time.Time
}

// NewClinicAdapter creates a new clinic database adapter
func NewClinicAdapter(client *postgres.Client) *ClinicAdapter {
	return &ClinicAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
		now:    time.Now,
	}
}

var _ providers.ClinicBackend = (*ClinicAdapter)(nil)

// Migrate creates the clinic tables if they do not exist
func (a *ClinicAdapter) Migrate(ctx context.Context) error {
	if _, err := a.client.DB().ExecContext(ctx, schema); err != nil {
		return apperrors.NewInternalError("failed to apply schema", err)
	}
	return nil
}

// FetchQueueSnapshot reads the doctor's current and waiting appointments
func (a *ClinicAdapter) FetchQueueSnapshot(ctx context.Context, doctorID string) (*entities.QueueSnapshot, error) {
	query, args, err := a.db.Select(
		"id", "patient_name", "doctor_id", "date", "scheduled_time", "status", "queue_position",
	).From("appointments").
		Where(goqu.Ex{
			"doctor_id": doctorID,
			"status": []string{
				string(entities.AppointmentStatusInConsultation),
				string(entities.AppointmentStatusWaiting),
			},
		}).
		Order(goqu.I("queue_position").Asc().NullsLast(), goqu.I("date").Asc(), goqu.I("scheduled_time").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewExternalError("failed to query queue", err)
	}
	defer rows.Close()

	snapshot := &entities.QueueSnapshot{
		DoctorID:  doctorID,
		Waiting:   []entities.Appointment{},
		FetchedAt: a.now(),
	}
	for rows.Next() {
		var appt entities.Appointment
		var position sql.NullInt64
		if err := rows.Scan(
			&appt.ID,
			&appt.PatientName,
			&appt.DoctorID,
			&appt.Date,
			&appt.ScheduledTime,
			&appt.Status,
			&position,
		); err != nil {
			return nil, apperrors.NewInternalError("failed to scan appointment", err)
		}
		if position.Valid {
			p := int(position.Int64)
			appt.QueuePosition = &p
		}

		if appt.Status == entities.AppointmentStatusInConsultation {
			if snapshot.CurrentPatient != nil {
				return nil, apperrors.NewExternalError("doctor has more than one patient in consultation",
					fmt.Errorf("%w: %s and %s", entities.ErrInvalidSnapshot, snapshot.CurrentPatient.ID, appt.ID))
			}
			current := appt
			snapshot.CurrentPatient = &current
			continue
		}
		snapshot.Waiting = append(snapshot.Waiting, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewExternalError("failed to read queue", err)
	}

	return snapshot, nil
}

// CompleteAppointment completes the in-consultation appointment and calls in
// the next waiting patient, closing the gap in queue positions
func (a *ClinicAdapter) CompleteAppointment(ctx context.Context, appointmentID string) error {
	tx, err := a.client.BeginTx(ctx)
	if err != nil {
		return apperrors.NewExternalError("failed to begin transaction", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			log.Warn().Err(err).Str("appointment_id", appointmentID).Msg("Failed to roll back completion")
		}
	}()

	now := a.now()

	query, args, err := a.db.Update("appointments").
		Set(goqu.Record{
			"status":         string(entities.AppointmentStatusCompleted),
			"queue_position": nil,
			"updated_at":     now,
		}).
		Where(goqu.Ex{"id": appointmentID, "status": string(entities.AppointmentStatusInConsultation)}).
		Returning("doctor_id").
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	var doctorID string
	err = tx.QueryRowContext(ctx, query, args...).Scan(&doctorID)
	if errors.Is(err, sql.ErrNoRows) {
		return a.completionConflict(ctx, tx, appointmentID)
	}
	if err != nil {
		return apperrors.NewExternalError("failed to complete appointment", err)
	}

	query, args, err = a.db.Select("id").From("appointments").
		Where(goqu.Ex{"doctor_id": doctorID, "status": string(entities.AppointmentStatusWaiting)}).
		Order(goqu.I("queue_position").Asc().NullsLast(), goqu.I("date").Asc(), goqu.I("scheduled_time").Asc()).
		Limit(1).
		ForUpdate(exp.Wait).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build query", err)
	}

	var nextID string
	err = tx.QueryRowContext(ctx, query, args...).Scan(&nextID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return apperrors.NewExternalError("failed to find next patient", err)
	default:
		if err := a.callIn(ctx, tx, doctorID, nextID, now); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewExternalError("failed to commit completion", err)
	}

	log.Info().Str("appointment_id", appointmentID).Str("doctor_id", doctorID).Str("next_appointment_id", nextID).Msg("Appointment completed")
	return nil
}

func (a *ClinicAdapter) callIn(ctx context.Context, tx *sql.Tx, doctorID, nextID string, now time.Time) error {
	query, args, err := a.db.Update("appointments").
		Set(goqu.Record{
			"status":         string(entities.AppointmentStatusInConsultation),
			"queue_position": nil,
			"updated_at":     now,
		}).
		Where(goqu.Ex{"id": nextID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewExternalError("failed to call in next patient", err)
	}

	query, args, err = a.db.Update("appointments").
		Set(goqu.Record{
			"queue_position": goqu.L("queue_position - 1"),
			"updated_at":     now,
		}).
		Where(goqu.Ex{"doctor_id": doctorID, "status": string(entities.AppointmentStatusWaiting)}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewExternalError("failed to renumber queue", err)
	}
	return nil
}

func (a *ClinicAdapter) completionConflict(ctx context.Context, tx *sql.Tx, appointmentID string) error {
	status, err := a.appointmentStatus(ctx, tx, appointmentID)
	if err != nil {
		return err
	}
	return apperrors.NewConflictError(fmt.Sprintf("appointment %s is %s, not in consultation", appointmentID, status))
}

func (a *ClinicAdapter) appointmentStatus(ctx context.Context, tx *sql.Tx, appointmentID string) (entities.AppointmentStatus, error) {
	query, args, err := a.db.Select("status").From("appointments").
		Where(goqu.Ex{"id": appointmentID}).
		ToSQL()
	if err != nil {
		return "", apperrors.NewInternalError("failed to build query", err)
	}

	var status entities.AppointmentStatus
	err = tx.QueryRowContext(ctx, query, args...).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperrors.NewNotFoundError(fmt.Sprintf("appointment with id %s not found", appointmentID))
	}
	if err != nil {
		return "", apperrors.NewExternalError("failed to get appointment", err)
	}
	return status, nil
}

// UpdateConsultation stores the consultation and its prescriptions in one transaction
func (a *ClinicAdapter) UpdateConsultation(ctx context.Context, appointmentID string, record *entities.ConsultationRecord) error {
	if record == nil {
		return apperrors.NewValidationError("consultation record is required")
	}
	if record.AppointmentID == "" {
		record.AppointmentID = appointmentID
	}
	if record.AppointmentID != appointmentID {
		return apperrors.NewValidationError(fmt.Sprintf("consultation belongs to appointment %s, not %s", record.AppointmentID, appointmentID))
	}
	if err := validation.Struct(record); err != nil {
		return err
	}
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.SubmittedAt.IsZero() {
		record.SubmittedAt = a.now()
	}

	tx, err := a.client.BeginTx(ctx)
	if err != nil {
		return apperrors.NewExternalError("failed to begin transaction", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			log.Warn().Err(err).Str("appointment_id", appointmentID).Msg("Failed to roll back consultation")
		}
	}()

	status, err := a.appointmentStatus(ctx, tx, appointmentID)
	if err != nil {
		return err
	}
	if status.IsFinal() {
		return apperrors.NewConflictError(fmt.Sprintf("appointment %s is %s", appointmentID, status))
	}

	fields := goqu.Record{
		"chief_complaint":            record.ChiefComplaint,
		"diagnosis":                  record.Diagnosis,
		"history_of_present_illness": record.HistoryOfPresentIllness,
		"physical_examination":       record.PhysicalExamination,
		"treatment_plan":             record.TreatmentPlan,
		"follow_up_instructions":     record.FollowUpInstructions,
		"next_appointment_date":      record.NextAppointmentDate,
		"additional_notes":           record.AdditionalNotes,
		"submitted_at":               record.SubmittedAt,
	}
	row := goqu.Record{"id": record.ID, "appointment_id": appointmentID}
	for k, v := range fields {
		row[k] = v
	}

	query, args, err := a.db.Insert("consultations").
		Rows(row).
		OnConflict(goqu.DoUpdate("appointment_id", fields)).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewExternalError("failed to store consultation", err)
	}

	query, args, err = a.db.Delete("consultation_prescriptions").
		Where(goqu.Ex{"appointment_id": appointmentID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewExternalError("failed to replace prescriptions", err)
	}

	if len(record.Prescriptions) > 0 {
		rows := make([]interface{}, 0, len(record.Prescriptions))
		for _, p := range record.Prescriptions {
			rows = append(rows, goqu.Record{
				"appointment_id":  appointmentID,
				"row_id":          p.ID,
				"medication_name": p.MedicationName,
				"dosage":          p.Dosage,
				"frequency":       p.Frequency,
				"duration":        p.Duration,
				"instructions":    p.Instructions,
			})
		}
		query, args, err = a.db.Insert("consultation_prescriptions").Rows(rows...).ToSQL()
		if err != nil {
			return apperrors.NewInternalError("failed to build insert query", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return apperrors.NewExternalError("failed to store prescriptions", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewExternalError("failed to commit consultation", err)
	}

	log.Info().Str("appointment_id", appointmentID).Str("consultation_id", record.ID).Int("prescriptions", len(record.Prescriptions)).Msg("Consultation stored")
	return nil
}
