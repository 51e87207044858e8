package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cwsupport/crf-provisioner/internal/model"
)

// AutoRequestInstructions is stamped on requests the system generates
// itself, e.g. during a bulk provisioning run.
const AutoRequestInstructions = "Request automatically generated; contact Courseware Support for more information."

// RequestService owns the request lifecycle: creation with validation,
// status transitions and the canceled-request reaper.
type RequestService struct {
	requests RequestStore
	sections SectionStore
	logger   *zap.Logger
}

func NewRequestService(requests RequestStore, sections SectionStore, logger *zap.Logger) *RequestService {
	return &RequestService{requests: requests, sections: sections, logger: logger}
}

// Create validates and stores a new request in Submitted status (or the
// status already set on the request, for system-generated ones). The target
// section and every included section must exist and be unclaimed.
func (s *RequestService) Create(ctx context.Context, request *model.Request) error {
	section, err := s.claimableSection(ctx, request.SectionCode)
	if err != nil {
		return err
	}

	if len(request.IncludedSections) > 0 {
		relatable, err := s.relatableCodes(ctx, request.SectionCode)
		if err != nil {
			return err
		}
		for _, code := range request.IncludedSections {
			if code == request.SectionCode {
				return &DataInvariantError{Reason: fmt.Sprintf("request %s includes itself", request.SectionCode)}
			}
			included, err := s.claimableSection(ctx, code)
			if err != nil {
				return err
			}
			if included.Term != section.Term {
				return &DataInvariantError{Reason: fmt.Sprintf("included section %s is from another term", code)}
			}
			if !relatable[code] {
				return &DataInvariantError{Reason: fmt.Sprintf("section %s is not related to %s", code, request.SectionCode)}
			}
		}
	}

	existing, err := s.requests.Get(ctx, request.SectionCode)
	if err != nil {
		return err
	}
	if existing != nil {
		return &DataInvariantError{Reason: fmt.Sprintf("request %s already exists", request.SectionCode)}
	}

	if request.Status == "" {
		request.Status = model.StatusSubmitted
	}
	if err := s.requests.Create(ctx, request); err != nil {
		return fmt.Errorf("create request %s: %w", request.SectionCode, err)
	}
	s.logger.Info("Created request",
		zap.String("section_code", request.SectionCode),
		zap.String("status", string(request.Status)),
	)
	return nil
}

// relatableCodes is the set of sections a request may fold in: siblings of
// the same course and members of the crosslist family.
func (s *RequestService) relatableCodes(ctx context.Context, sectionCode string) (map[string]bool, error) {
	courseCodes, err := s.sections.CourseSectionCodes(ctx, sectionCode)
	if err != nil {
		return nil, err
	}
	xlistCodes, err := s.sections.AlsoOfferedAsCodes(ctx, sectionCode)
	if err != nil {
		return nil, err
	}
	relatable := make(map[string]bool, len(courseCodes)+len(xlistCodes))
	for _, code := range courseCodes {
		relatable[code] = true
	}
	for _, code := range xlistCodes {
		relatable[code] = true
	}
	return relatable, nil
}

func (s *RequestService) claimableSection(ctx context.Context, sectionCode string) (*model.Section, error) {
	section, err := s.sections.Get(ctx, sectionCode)
	if err != nil {
		return nil, err
	}
	if section == nil {
		return nil, &DataInvariantError{Reason: fmt.Sprintf("section %s does not exist", sectionCode)}
	}
	if section.Requested || section.RequestedOverride {
		return nil, &DataInvariantError{Reason: fmt.Sprintf("section %s is already requested", sectionCode)}
	}
	if section.PrimaryCrosslist != "" {
		return nil, &DataInvariantError{Reason: fmt.Sprintf("section %s is claimed by crosslist primary %s", sectionCode, section.PrimaryCrosslist)}
	}
	return section, nil
}

// AddEnrollment attaches one extra person to a request. Enrollments land in
// Canvas when the builder processes the request, so a terminal request
// rejects them.
func (s *RequestService) AddEnrollment(ctx context.Context, enrollment *model.SectionEnrollment) error {
	request, err := s.requests.Get(ctx, enrollment.RequestSectionCode)
	if err != nil {
		return err
	}
	if request == nil {
		return &DataInvariantError{Reason: fmt.Sprintf("request %s does not exist", enrollment.RequestSectionCode)}
	}
	if request.Status == model.StatusCompleted || request.Status == model.StatusCanceled {
		return &DataInvariantError{Reason: fmt.Sprintf("request %s is %s", enrollment.RequestSectionCode, request.Status)}
	}
	return s.requests.AddEnrollment(ctx, enrollment)
}

// Transition moves a request along the status graph, rejecting moves the
// graph does not permit.
func (s *RequestService) Transition(ctx context.Context, sectionCode string, next model.RequestStatus) error {
	request, err := s.requests.Get(ctx, sectionCode)
	if err != nil {
		return err
	}
	if request == nil {
		return &DataInvariantError{Reason: fmt.Sprintf("request %s does not exist", sectionCode)}
	}
	if !request.Status.CanTransitionTo(next) {
		return &DataInvariantError{Reason: fmt.Sprintf("request %s cannot move from %s to %s", sectionCode, request.Status, next)}
	}
	if err := s.requests.SetStatus(ctx, sectionCode, next); err != nil {
		return fmt.Errorf("transition request %s: %w", sectionCode, err)
	}
	s.logger.Info("Request transitioned",
		zap.String("section_code", sectionCode),
		zap.String("from", string(request.Status)),
		zap.String("to", string(next)),
	)
	return nil
}

// Approve marks a request ready for the site builder.
func (s *RequestService) Approve(ctx context.Context, sectionCode string) error {
	return s.Transition(ctx, sectionCode, model.StatusApproved)
}

// Lock places an administrative hold on a request.
func (s *RequestService) Lock(ctx context.Context, sectionCode string) error {
	return s.Transition(ctx, sectionCode, model.StatusLocked)
}

// Cancel retires a request; the reaper deletes it later.
func (s *RequestService) Cancel(ctx context.Context, sectionCode string) error {
	if err := s.Transition(ctx, sectionCode, model.StatusCanceled); err != nil {
		return err
	}
	return s.requests.AppendProcessNote(ctx, sectionCode, "cancelled")
}

// Retry moves an errored request back to Approved with a clean note slate
// so the builder picks it up again.
func (s *RequestService) Retry(ctx context.Context, sectionCode string) error {
	if err := s.Transition(ctx, sectionCode, model.StatusApproved); err != nil {
		return err
	}
	return s.requests.ClearProcessNotes(ctx, sectionCode)
}

// Delete removes a request outright, releasing its sections.
func (s *RequestService) Delete(ctx context.Context, sectionCode string) error {
	if err := s.requests.Delete(ctx, sectionCode); err != nil {
		return fmt.Errorf("delete request %s: %w", sectionCode, err)
	}
	s.logger.Info("Deleted request", zap.String("section_code", sectionCode))
	return nil
}

// ReapCanceled deletes every canceled request, freeing the underlying
// sections for a fresh request.
func (s *RequestService) ReapCanceled(ctx context.Context) error {
	canceled, err := s.requests.ListByStatus(ctx, model.StatusCanceled)
	if err != nil {
		return fmt.Errorf("list canceled requests: %w", err)
	}
	for _, request := range canceled {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Delete(ctx, request.SectionCode); err != nil {
			s.logger.Error("Failed to reap canceled request",
				zap.String("section_code", request.SectionCode),
				zap.Error(err),
			)
		}
	}
	return nil
}
