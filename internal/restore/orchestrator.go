// Package restore sequences the restore protocol: listing, previewing,
// confirmation, the restore call itself, and interpretation of conflict
// responses. Transitions are a pure function so the protocol is testable
// without timers or I/O.
package restore

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/snapvault/internal/apperr"
	"github.com/snapvault/internal/compose"
	"github.com/snapvault/internal/editor"
	"github.com/snapvault/internal/version"
)

// State is a position in the restore protocol.
type State string

const (
	StateIdle           State = "idle"
	StateListing        State = "listing"
	StateLoadingContent State = "loading_content"
	StatePreviewing     State = "previewing"
	StateConfirming     State = "confirming"
	StateRestoring      State = "restoring"
	StateComplete       State = "complete"
	StateConflict       State = "conflict"
	StateErrored        State = "error"
)

// Event drives the protocol forward.
type Event string

const (
	EventOpen          Event = "open"
	EventPreview       Event = "preview"
	EventContentLoaded Event = "content_loaded"
	EventRequest       Event = "request_restore"
	EventConfirm       Event = "confirm"
	EventCancel        Event = "cancel"
	EventSucceeded     Event = "succeeded"
	EventConflict      Event = "conflict"
	EventFailed        Event = "failed"
	EventDismiss       Event = "dismiss"
	EventClose         Event = "close"
)

// transitions is the protocol table. Anything absent is an invalid move.
var transitions = map[State]map[Event]State{
	StateIdle: {
		EventOpen: StateListing,
	},
	StateListing: {
		EventPreview: StateLoadingContent,
		EventClose:   StateIdle,
	},
	StateLoadingContent: {
		EventContentLoaded: StatePreviewing,
		EventFailed:        StateErrored,
		EventClose:         StateIdle,
	},
	StatePreviewing: {
		EventPreview: StateLoadingContent,
		EventRequest: StateConfirming,
		EventClose:   StateIdle,
	},
	StateConfirming: {
		EventConfirm: StateRestoring,
		EventCancel:  StatePreviewing,
		EventClose:   StateIdle,
	},
	StateRestoring: {
		EventSucceeded: StateComplete,
		EventConflict:  StateConflict,
		EventFailed:    StateErrored,
	},
	StateComplete: {
		EventClose: StateIdle,
	},
	StateConflict: {
		EventDismiss: StatePreviewing,
		EventClose:   StateIdle,
	},
	StateErrored: {
		EventDismiss: StatePreviewing,
		EventPreview: StateLoadingContent,
		EventClose:   StateIdle,
	},
}

// Next applies one event to a state. It is pure: no I/O, no side effects.
func Next(s State, e Event) (State, error) {
	if to, ok := transitions[s][e]; ok {
		return to, nil
	}
	return s, apperr.Newf(apperr.Validation, "cannot %s while %s", e, s)
}

// session tracks protocol state for one document's version panel. gen is
// drawn from an orchestrator-wide counter, so a reopened panel never carries
// a generation an earlier session's in-flight work could match.
type session struct {
	state     State
	preview   *version.Version
	action    version.RestoreAction
	opts      version.RestoreOptions
	versionID string
	restoring bool
	gen       uint64
}

// Orchestrator drives the restore protocol per document. All methods are safe
// for concurrent use; at most one restore is in flight per document, and a
// second request while one is pending is rejected rather than queued.
type Orchestrator struct {
	repo      *version.Repository
	editorFor func(documentID string) editor.Editor

	mu       sync.Mutex
	nextGen  uint64
	sessions map[string]*session
}

// New builds an orchestrator over the repository. editorFor resolves the
// live-editor capability for a document.
func New(repo *version.Repository, editorFor func(documentID string) editor.Editor) *Orchestrator {
	return &Orchestrator{
		repo:      repo,
		editorFor: editorFor,
		sessions:  make(map[string]*session),
	}
}

// StateOf reports the current protocol state for a document.
func (o *Orchestrator) StateOf(documentID string) State {
	o.mu.Lock()
	defer o.mu.Unlock()
	if s, ok := o.sessions[documentID]; ok {
		return s.state
	}
	return StateIdle
}

// OpenPanel starts a session for a document and loads version metadata.
func (o *Orchestrator) OpenPanel(ctx context.Context, documentID string, limit, offset int) ([]version.Version, error) {
	o.mu.Lock()
	s, ok := o.sessions[documentID]
	if !ok {
		o.nextGen++
		s = &session{state: StateIdle, gen: o.nextGen}
		o.sessions[documentID] = s
	}
	if s.state == StateIdle {
		next, err := Next(s.state, EventOpen)
		if err != nil {
			o.mu.Unlock()
			return nil, err
		}
		s.state = next
	}
	gen := s.gen
	o.mu.Unlock()

	versions, err := o.repo.ListVersions(ctx, documentID, limit, offset)
	if err != nil {
		return nil, err
	}

	// Discard if the panel closed while the list was loading.
	o.mu.Lock()
	defer o.mu.Unlock()
	if cur, ok := o.sessions[documentID]; !ok || cur.gen != gen {
		return nil, apperr.New(apperr.Validation, "version panel closed", nil)
	}
	return versions, nil
}

// Preview loads full content for a version (if not already present) and
// composes the comparison views against the live document.
func (o *Orchestrator) Preview(ctx context.Context, documentID string, versionNumber int) (*compose.Preview, error) {
	gen, err := o.step(documentID, EventPreview)
	if err != nil {
		return nil, err
	}

	v, err := o.repo.GetVersionContent(ctx, documentID, versionNumber)
	if err != nil {
		o.stepIfLive(documentID, gen, EventFailed)
		return nil, err
	}

	ed := o.editorFor(documentID)
	liveHTML, err := ed.CurrentHTML(ctx)
	if err != nil {
		o.stepIfLive(documentID, gen, EventFailed)
		return nil, err
	}
	livePlain, err := ed.CurrentPlainText(ctx)
	if err != nil {
		o.stepIfLive(documentID, gen, EventFailed)
		return nil, err
	}

	preview := compose.Compose(v, liveHTML, livePlain, time.Now())

	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.sessions[documentID]
	if !ok || s.gen != gen {
		return nil, apperr.New(apperr.Validation, "version panel closed", nil)
	}
	if next, err := Next(s.state, EventContentLoaded); err == nil {
		s.state = next
	}
	s.preview = v
	return preview, nil
}

// RequestRestore records a restore intent and moves to confirming. The
// restore does not run until Confirm is called, so an overwrite always takes
// two explicit calls.
func (o *Orchestrator) RequestRestore(documentID, versionID string, action version.RestoreAction, opts version.RestoreOptions) error {
	if !action.Valid() {
		return apperr.Newf(apperr.Validation, "unknown restore action %q", action)
	}

	perms := o.repo.Auth().Permissions
	switch action {
	case version.RestoreAsNew:
		if !perms.CanRestoreAsNew {
			return apperr.New(apperr.Forbidden, "you do not have permission to restore as a new document", nil)
		}
	case version.RestoreOverwrite:
		if !perms.CanOverwriteRestore {
			return apperr.New(apperr.Forbidden, "you do not have permission to overwrite this document", nil)
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.sessions[documentID]
	if !ok {
		return apperr.New(apperr.Validation, "version panel is not open", nil)
	}
	if s.restoring {
		return apperr.New(apperr.Validation, "a restore is already in progress for this document", nil)
	}
	next, err := Next(s.state, EventRequest)
	if err != nil {
		return err
	}
	s.state = next
	s.action = action
	s.opts = opts
	s.versionID = versionID
	return nil
}

// Confirm executes the pending restore. For overwrite this is the second,
// destructive-action confirmation.
func (o *Orchestrator) Confirm(ctx context.Context, documentID string) (*version.RestoreResult, error) {
	o.mu.Lock()
	s, ok := o.sessions[documentID]
	if !ok {
		o.mu.Unlock()
		return nil, apperr.New(apperr.Validation, "version panel is not open", nil)
	}
	if s.restoring {
		o.mu.Unlock()
		return nil, apperr.New(apperr.Validation, "a restore is already in progress for this document", nil)
	}
	next, err := Next(s.state, EventConfirm)
	if err != nil {
		o.mu.Unlock()
		return nil, err
	}
	s.state = next
	s.restoring = true
	action, opts, versionID, gen := s.action, s.opts, s.versionID, s.gen
	o.mu.Unlock()

	result, err := o.repo.Restore(ctx, documentID, versionID, action, opts)

	o.mu.Lock()
	defer o.mu.Unlock()
	cur, ok := o.sessions[documentID]
	if !ok || cur.gen != gen {
		// The panel closed mid-flight; the outcome must not touch whatever
		// session now holds this document.
		return nil, apperr.New(apperr.Validation, "version panel closed", nil)
	}
	cur.restoring = false
	switch {
	case err == nil:
		cur.state, _ = Next(cur.state, EventSucceeded)
	case apperr.Is(err, apperr.Conflict):
		cur.state, _ = Next(cur.state, EventConflict)
	default:
		cur.state, _ = Next(cur.state, EventFailed)
	}

	if err != nil {
		if apperr.Is(err, apperr.Conflict) {
			log.Printf("restore conflict for document %s: %v", documentID, err)
			return nil, apperr.New(apperr.Conflict, "an active editing session blocked the overwrite; restore as a new document instead", err)
		}
		return nil, err
	}

	log.Printf("restore complete for document %s: %s", documentID, result.Message)
	return result, nil
}

// Cancel abandons a pending confirmation and returns to the preview.
func (o *Orchestrator) Cancel(documentID string) error {
	_, err := o.step(documentID, EventCancel)
	return err
}

// Dismiss acknowledges a conflict or error and returns to the preview so the
// user can retry without losing context.
func (o *Orchestrator) Dismiss(documentID string) error {
	_, err := o.step(documentID, EventDismiss)
	return err
}

// ClosePanel ends the session. In-flight results arriving afterwards are
// discarded, even if the panel has been reopened since: the replacement
// session carries a fresh generation.
func (o *Orchestrator) ClosePanel(documentID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.sessions, documentID)
}

// step applies an event to a document's session under the lock and returns
// the generation for staleness checks.
func (o *Orchestrator) step(documentID string, e Event) (uint64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.sessions[documentID]
	if !ok {
		return 0, apperr.New(apperr.Validation, "version panel is not open", nil)
	}
	next, err := Next(s.state, e)
	if err != nil {
		return s.gen, err
	}
	s.state = next
	return s.gen, nil
}

// stepIfLive applies an event only if the session still matches gen.
func (o *Orchestrator) stepIfLive(documentID string, gen uint64, e Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.sessions[documentID]
	if !ok || s.gen != gen {
		return
	}
	if next, err := Next(s.state, e); err == nil {
		s.state = next
	}
}
