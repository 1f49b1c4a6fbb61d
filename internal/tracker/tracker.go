// SPDX-License-Identifier: MIT

// Package tracker implements the per-participant completion tracker: it
// initializes submission sessions, applies the atomic
// increment-and-maybe-finalize script and exposes typed accessors over
// the session, slot and archive-progress records.
//
// Concurrency safety is delegated entirely to the server-side script;
// the repository itself holds no shared mutable state and every method
// is safe for concurrent use.
package tracker

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/openfoto/intake/internal/keys"
	"github.com/openfoto/intake/internal/log"
	"github.com/openfoto/intake/internal/metrics"
	"github.com/openfoto/intake/internal/store"
)

// Sentinel errors for protocol violations surfaced by IncrementCompletion.
var (
	// ErrInvalidSlotIndex means the slot index is outside the declared
	// range. Retrying cannot succeed.
	ErrInvalidSlotIndex = errors.New("slot index outside declared range")

	// ErrSessionMissing means the session was never initialized or its
	// record is corrupted. Retrying cannot succeed.
	ErrSessionMissing = errors.New("session not initialized or corrupted")
)

// Archive status values.
const (
	ArchiveStatusRunning  = "running"
	ArchiveStatusComplete = "complete"
	ArchiveStatusError    = "error"
)

// Result is the caller-facing outcome of one completion increment.
type Result struct {
	Outcome  Outcome
	Finalize bool
}

// Repository is the completion tracker backed by the state store.
type Repository struct {
	store   *store.Client
	trigger Trigger
	logger  zerolog.Logger
}

// New builds a Repository. A nil trigger disables fan-out.
func New(st *store.Client, trigger Trigger, logger zerolog.Logger) *Repository {
	if trigger == nil {
		trigger = NopTrigger
	}
	return &Repository{
		store:   st,
		trigger: trigger,
		logger:  logger,
	}
}

// InitializeSession creates the participant session plus one submission
// slot per key. slotKeys is ordered; each key's position is its 0-based
// slot index.
//
// Not idempotent: the caller must ensure a single initialization per
// participant. A second call resets the counting state and can re-open
// an already finalized session.
func (r *Repository) InitializeSession(ctx context.Context, tenant, reference string, slotKeys []string) error {
	if len(slotKeys) == 0 {
		return fmt.Errorf("initialize session %s/%s: no slot keys", tenant, reference)
	}

	sessionKey := keys.Session(tenant, reference)
	if err := r.store.HSet(ctx, sessionKey, encodeSession(len(slotKeys))); err != nil {
		return fmt.Errorf("initialize session %s/%s: %w", tenant, reference, err)
	}
	for i, sourceKey := range slotKeys {
		if err := r.store.HSet(ctx, keys.Slot(tenant, reference, i), encodeSlot(sourceKey)); err != nil {
			return fmt.Errorf("initialize slot %d of %s/%s: %w", i, tenant, reference, err)
		}
	}

	logger := log.WithContext(ctx, r.logger)
	logger.Info().
		Str(log.FieldTenant, tenant).
		Str(log.FieldReference, reference).
		Int("expected", len(slotKeys)).
		Msg("session initialized")
	return nil
}

// IncrementCompletion marks one slot processed via the atomic script
// and classifies the outcome. Exactly one call per session ever returns
// Finalize=true; that call also fires the fan-out trigger.
//
// Benign races (duplicate slot, late arrival after finalize) return a
// nil error. Protocol violations return ErrInvalidSlotIndex or
// ErrSessionMissing and are additionally recorded on the session's
// error list for operator visibility.
func (r *Repository) IncrementCompletion(ctx context.Context, tenant, reference string, slotIndex int) (Result, error) {
	logger := log.WithContext(ctx, r.logger).With().
		Str(log.FieldTenant, tenant).
		Str(log.FieldReference, reference).
		Int(log.FieldSlot, slotIndex).
		Logger()

	raw, err := r.store.EvalScript(ctx, completionScript, keys.Session(tenant, reference), slotIndex)
	if err != nil {
		return Result{}, fmt.Errorf("completion script for %s/%s slot %d: %w", tenant, reference, slotIndex, err)
	}
	code, ok := raw.(string)
	if !ok {
		return Result{}, fmt.Errorf("completion script returned %T, want string", raw)
	}
	outcome, err := ParseOutcome(code)
	if err != nil {
		return Result{}, err
	}
	metrics.IncIncrementOutcome(outcome.String())

	switch outcome {
	case OutcomeProcessed:
		logger.Debug().Str(log.FieldOutcome, code).Msg("slot processed, more pending")
		return Result{Outcome: outcome}, nil

	case OutcomeFinalized:
		metrics.FinalizationsTotal.Inc()
		logger.Info().Str(log.FieldOutcome, code).Msg("all slots processed, session finalized")
		if err := r.trigger.Finalized(ctx, tenant, reference); err != nil {
			// The finalize transition already happened and will not
			// repeat; the lost signal needs operator attention.
			logger.Error().Err(err).Msg("fan-out trigger failed after finalize")
			return Result{Outcome: outcome, Finalize: true},
				fmt.Errorf("fan-out trigger for %s/%s: %w", tenant, reference, err)
		}
		return Result{Outcome: outcome, Finalize: true}, nil

	case OutcomeDuplicate:
		logger.Warn().Str(log.FieldOutcome, code).Msg("duplicate slot delivery ignored")
		return Result{Outcome: outcome}, nil

	case OutcomeAlreadyFinalized:
		logger.Warn().Str(log.FieldOutcome, code).Msg("arrival after finalize ignored")
		return Result{Outcome: outcome}, nil

	case OutcomeInvalidIndex:
		logger.Error().Str(log.FieldOutcome, code).Msg("slot index outside declared range")
		r.recordSessionError(ctx, tenant, reference,
			fmt.Sprintf("invalid slot index %d", slotIndex))
		return Result{Outcome: outcome},
			fmt.Errorf("%s/%s slot %d: %w", tenant, reference, slotIndex, ErrInvalidSlotIndex)

	case OutcomeMissingData:
		logger.Error().Str(log.FieldOutcome, code).Msg("session record absent or corrupted")
		r.recordSessionError(ctx, tenant, reference,
			fmt.Sprintf("increment for slot %d on uninitialized session", slotIndex))
		return Result{Outcome: outcome},
			fmt.Errorf("%s/%s: %w", tenant, reference, ErrSessionMissing)
	}

	return Result{}, fmt.Errorf("unhandled completion outcome: %q", outcome)
}

// GetSession reads the participant session. Best effort: transient
// failures and undecodable records degrade to absent, which callers
// must treat as "unknown", not "does not exist".
func (r *Repository) GetSession(ctx context.Context, tenant, reference string) (*Session, bool) {
	record, err := r.store.HGetAll(ctx, keys.Session(tenant, reference))
	if err != nil {
		r.logger.Warn().Err(err).
			Str(log.FieldTenant, tenant).
			Str(log.FieldReference, reference).
			Msg("session read failed, degrading to absent")
		return nil, false
	}
	if len(record) == 0 {
		return nil, false
	}
	session, err := decodeSession(record)
	if err != nil {
		r.logger.Warn().Err(err).
			Str(log.FieldTenant, tenant).
			Str(log.FieldReference, reference).
			Msg("session record undecodable, degrading to absent")
		return nil, false
	}
	return session, true
}

// GetSlot reads one submission slot. Best effort, like GetSession.
func (r *Repository) GetSlot(ctx context.Context, tenant, reference string, index int) (*Slot, bool) {
	record, err := r.store.HGetAll(ctx, keys.Slot(tenant, reference, index))
	if err != nil {
		r.logger.Warn().Err(err).
			Str(log.FieldTenant, tenant).
			Str(log.FieldReference, reference).
			Int(log.FieldSlot, index).
			Msg("slot read failed, degrading to absent")
		return nil, false
	}
	if len(record) == 0 {
		return nil, false
	}
	return decodeSlot(index, record), true
}

// GetAllSlots reads every slot of the session in one pipelined round
// trip. Best effort: an unreadable session yields no slots.
func (r *Repository) GetAllSlots(ctx context.Context, tenant, reference string) []Slot {
	session, ok := r.GetSession(ctx, tenant, reference)
	if !ok {
		return nil
	}
	slotKeys := make([]string, session.Expected)
	for i := range slotKeys {
		slotKeys[i] = keys.Slot(tenant, reference, i)
	}
	records, err := r.store.HGetAllMulti(ctx, slotKeys)
	if err != nil {
		r.logger.Warn().Err(err).
			Str(log.FieldTenant, tenant).
			Str(log.FieldReference, reference).
			Msg("slot multi-read failed, degrading to absent")
		return nil
	}
	slots := make([]Slot, 0, len(records))
	for i, record := range records {
		if len(record) == 0 {
			continue
		}
		slots = append(slots, *decodeSlot(i, record))
	}
	return slots
}

// UpdateSession writes non-counting session fields. Must not be used to
// express completion; counting goes through IncrementCompletion only.
func (r *Repository) UpdateSession(ctx context.Context, tenant, reference string, update SessionUpdate) error {
	fields := update.fields()
	if len(fields) == 0 {
		return nil
	}
	if err := r.store.HSet(ctx, keys.Session(tenant, reference), fields); err != nil {
		return fmt.Errorf("update session %s/%s: %w", tenant, reference, err)
	}
	return nil
}

// UpdateSlot writes slot fields owned by the responsible worker.
func (r *Repository) UpdateSlot(ctx context.Context, tenant, reference string, index int, update SlotUpdate) error {
	fields := update.fields()
	if len(fields) == 0 {
		return nil
	}
	if err := r.store.HSet(ctx, keys.Slot(tenant, reference, index), fields); err != nil {
		return fmt.Errorf("update slot %d of %s/%s: %w", index, tenant, reference, err)
	}
	return nil
}

// AppendSessionError records an error message on the session for
// operator visibility.
func (r *Repository) AppendSessionError(ctx context.Context, tenant, reference, message string) error {
	sessionKey := keys.Session(tenant, reference)
	record, err := r.store.HGetAll(ctx, sessionKey)
	if err != nil {
		return fmt.Errorf("append session error for %s/%s: %w", tenant, reference, err)
	}
	errs := append(decodeErrors(record[fieldErrors]), message)
	if err := r.store.HSet(ctx, sessionKey, map[string]any{fieldErrors: encodeErrors(errs)}); err != nil {
		return fmt.Errorf("append session error for %s/%s: %w", tenant, reference, err)
	}
	return nil
}

// recordSessionError is the best-effort variant used on the increment
// path, where the protocol violation itself is the primary error.
func (r *Repository) recordSessionError(ctx context.Context, tenant, reference, message string) {
	if err := r.AppendSessionError(ctx, tenant, reference, message); err != nil {
		r.logger.Warn().Err(err).
			Str(log.FieldTenant, tenant).
			Str(log.FieldReference, reference).
			Msg("failed to record error on session")
	}
}

// StartArchive creates the archive progress record in running state.
func (r *Repository) StartArchive(ctx context.Context, tenant, reference string) error {
	fields := map[string]any{
		fieldProgress:   "0",
		fieldStatus:     ArchiveStatusRunning,
		fieldErrors:     "[]",
		fieldArchiveKey: "",
	}
	if err := r.store.HSet(ctx, keys.Archive(tenant, reference), fields); err != nil {
		return fmt.Errorf("start archive for %s/%s: %w", tenant, reference, err)
	}
	return nil
}

// AdvanceArchive increments the archive progress counter.
func (r *Repository) AdvanceArchive(ctx context.Context, tenant, reference string, delta int) error {
	if err := r.store.HIncrBy(ctx, keys.Archive(tenant, reference), fieldProgress, int64(delta)); err != nil {
		return fmt.Errorf("advance archive for %s/%s: %w", tenant, reference, err)
	}
	return nil
}

// CompleteArchive marks archive packaging complete and records the
// produced archive key.
func (r *Repository) CompleteArchive(ctx context.Context, tenant, reference, archiveKey string) error {
	fields := map[string]any{
		fieldStatus:     ArchiveStatusComplete,
		fieldArchiveKey: archiveKey,
	}
	if err := r.store.HSet(ctx, keys.Archive(tenant, reference), fields); err != nil {
		return fmt.Errorf("complete archive for %s/%s: %w", tenant, reference, err)
	}
	return nil
}

// FailArchive marks archive packaging failed and records the error.
func (r *Repository) FailArchive(ctx context.Context, tenant, reference, message string) error {
	archiveKey := keys.Archive(tenant, reference)
	record, err := r.store.HGetAll(ctx, archiveKey)
	if err != nil {
		return fmt.Errorf("fail archive for %s/%s: %w", tenant, reference, err)
	}
	errs := append(decodeErrors(record[fieldErrors]), message)
	fields := map[string]any{
		fieldStatus: ArchiveStatusError,
		fieldErrors: encodeErrors(errs),
	}
	if err := r.store.HSet(ctx, archiveKey, fields); err != nil {
		return fmt.Errorf("fail archive for %s/%s: %w", tenant, reference, err)
	}
	return nil
}

// GetArchive reads the archive progress record. Best effort.
func (r *Repository) GetArchive(ctx context.Context, tenant, reference string) (*ArchiveProgress, bool) {
	record, err := r.store.HGetAll(ctx, keys.Archive(tenant, reference))
	if err != nil {
		r.logger.Warn().Err(err).
			Str(log.FieldTenant, tenant).
			Str(log.FieldReference, reference).
			Msg("archive read failed, degrading to absent")
		return nil, false
	}
	if len(record) == 0 {
		return nil, false
	}
	return decodeArchive(record), true
}
