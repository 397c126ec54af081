package services

import (
	"context"
	"log/slog"
	"strings"

	"crm-sync-service/internal/format"
	"crm-sync-service/internal/pipedrive"
)

// CRMNoteStore is the slice of the CRM client the note synchronizer needs.
type CRMNoteStore interface {
	ListNotes(ctx context.Context, dealID int64) ([]pipedrive.Note, error)
	AddNote(ctx context.Context, payload pipedrive.NotePayload) (int64, error)
	UpdateNote(ctx context.Context, noteID int64, payload pipedrive.NotePayload) error
}

var knownMarkers = []string{format.ObjectsMarker, format.PaymentsMarker}

// NoteSynchronizer upserts the two note slots of a deal independently. The
// note API exposes no stable external key, so each slot is found by the
// marker heading its content starts with; the first note carrying no known
// marker is adopted as a legacy fallback for records written before markers
// existed.
type NoteSynchronizer struct {
	crm CRMNoteStore
}

func NewNoteSynchronizer(crm CRMNoteStore) *NoteSynchronizer {
	return &NoteSynchronizer{crm: crm}
}

// Upsert writes content into the slot identified by marker. The content must
// already start with that marker (the formatter guarantees this).
func (s *NoteSynchronizer) Upsert(ctx context.Context, dealID int64, marker, content string, ownerID int64) error {
	notes, err := s.crm.ListNotes(ctx, dealID)
	if err != nil {
		return err
	}

	payload := pipedrive.NotePayload{
		Content: content,
		DealID:  dealID,
		UserID:  ownerID,
	}

	if noteID, found := resolveSlot(notes, marker); found {
		return s.crm.UpdateNote(ctx, noteID, payload)
	}

	if _, err := s.crm.AddNote(ctx, payload); err != nil {
		return err
	}
	slog.Info("Note slot created", "deal_id", dealID, "marker", marker)
	return nil
}

func resolveSlot(notes []pipedrive.Note, marker string) (int64, bool) {
	for _, note := range notes {
		if strings.HasPrefix(note.Content, marker) {
			return note.ID, true
		}
	}

	for _, note := range notes {
		if !hasKnownMarker(note.Content) {
			return note.ID, true
		}
	}
	return 0, false
}

func hasKnownMarker(content string) bool {
	for _, marker := range knownMarkers {
		if strings.HasPrefix(content, marker) {
			return true
		}
	}
	return false
}
