package application

import (
	"bytes"
	"context"
	"fmt"
	"strings"
)

// Decision is the outcome a user picks for a pending change.
type Decision string

const (
	// DecisionAccept applies the original change despite its conflicts.
	DecisionAccept Decision = "accept"
	// DecisionModify applies caller supplied data in place of the original.
	DecisionModify Decision = "modify"
	// DecisionReject discards the change.
	DecisionReject Decision = "reject"
)

// ParseDecision maps a client supplied decision onto a Decision. Matching is
// exact. Anything else, including "ACCEPT" or " accept", becomes
// DecisionReject and known reports false.
func ParseDecision(value string) (decision Decision, known bool) {
	switch Decision(value) {
	case DecisionAccept:
		return DecisionAccept, true
	case DecisionModify:
		return DecisionModify, true
	case DecisionReject:
		return DecisionReject, true
	}
	return DecisionReject, false
}

// Resolve acts on the principal's decision for a pending change and then
// deletes it. Accepted and modified changes are applied without running the
// conflict detector. If applying fails the pending change is kept.
//
// Resolutions of the same pending change run one at a time, so a change is
// applied at most once. Callers that lose the race get ErrNotFound.
func (s *SyncService) Resolve(ctx context.Context, req ResolveRequest) (ResolveResult, error) {
	if s == nil || s.pending == nil || s.exams == nil {
		return ResolveResult{}, fmt.Errorf("sync service not configured")
	}
	principal := req.Principal
	if strings.TrimSpace(principal.UserID) == "" {
		return ResolveResult{}, ErrPermission
	}
	if strings.TrimSpace(req.ChangeID) == "" {
		return ResolveResult{}, missingField("changeId", "is required")
	}

	logger := serviceLogger(ctx, s.logger, "SyncService", "Resolve",
		"user_id", principal.UserID, "change_id", req.ChangeID)

	unlock := s.resolving.lock(principal.UserID + "\x00" + req.ChangeID)
	defer unlock()

	pending, err := s.pending.GetPending(ctx, req.ChangeID, principal.UserID)
	if err != nil {
		return ResolveResult{}, mapRepoError(err)
	}

	decision, known := ParseDecision(req.Decision)
	if !known {
		logger.WarnContext(ctx, "unrecognised resolution decision treated as reject", "decision", req.Decision)
	}

	result := ResolveResult{ChangeID: pending.ChangeID, Decision: decision, Outcome: OutcomeRejected}

	switch decision {
	case DecisionAccept, DecisionModify:
		data := pending.Data
		if decision == DecisionModify {
			if len(bytes.TrimSpace(req.ModifiedData)) == 0 {
				return ResolveResult{}, missingField("modifiedData", "is required when modifying a change")
			}
			data = req.ModifiedData
		}

		raw := RawChange{ID: pending.ChangeID, Type: pending.Type, Action: pending.Action, Data: data}
		change, err := DecodeChange(raw)
		if err != nil {
			return ResolveResult{}, err
		}
		outcome, err := s.apply(ctx, principal, pending.DeviceID, raw, change, false)
		if err != nil {
			logger.WarnContext(ctx, "resolution failed", "decision", decision, "error_kind", ErrorKind(err), "error", err)
			return ResolveResult{}, err
		}
		result.Outcome = outcome.outcome
		result.Exam = outcome.exam

	case DecisionReject:
	}

	if err := s.pending.DeletePending(ctx, pending.ChangeID, principal.UserID); err != nil {
		logger.ErrorContext(ctx, "pending change could not be deleted", "decision", decision, "outcome", result.Outcome, "error", err)
		return ResolveResult{}, mapRepoError(err)
	}

	logger.InfoContext(ctx, "pending change resolved", "decision", decision, "outcome", result.Outcome)
	return result, nil
}
