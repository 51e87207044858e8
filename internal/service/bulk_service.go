package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cwsupport/crf-provisioner/internal/canvas"
	"github.com/cwsupport/crf-provisioner/internal/model"
)

// toolTabPosition pins enabled tool tabs near the top of the course
// navigation, below Home and Syllabus.
const toolTabPosition = 3

// DefaultTools is the tool-tab set enabled on bulk-provisioned sites,
// keyed by tab id.
var DefaultTools = map[string]string{
	"context_external_tool_90311":  "Class Recordings",
	"context_external_tool_231623": "Zoom",
	"context_external_tool_132117": "Gradescope",
}

// BulkOptions configures one bulk provisioning run.
type BulkOptions struct {
	Term       int
	SchoolCode string
	Requester  string

	// Tools maps tab ids to labels. With ByLabel the label side is matched
	// against the course navigation instead of the id.
	EnableTools bool
	Tools       map[string]string
	ByLabel     bool

	Publish bool
}

// BulkService provisions course sites for every unrequested section of a
// term, one request per course, without waiting for an instructor to ask.
type BulkService struct {
	sections SectionStore
	requests RequestCreator
	builder  SiteBuilder
	canvas   Canvas
	logger   *zap.Logger
}

func NewBulkService(sections SectionStore, requests RequestCreator, builder SiteBuilder, cv Canvas, logger *zap.Logger) *BulkService {
	return &BulkService{sections: sections, requests: requests, builder: builder, canvas: cv, logger: logger}
}

// ProvisionTerm creates a site for every unrequested course of the term.
// Sections of the same course are folded into a single request behind the
// first section encountered. Failures are isolated per course.
func (s *BulkService) ProvisionTerm(ctx context.Context, opts BulkOptions) error {
	candidates, err := s.sections.ListUnrequested(ctx, opts.Term, opts.SchoolCode)
	if err != nil {
		return fmt.Errorf("list unrequested sections: %w", err)
	}
	s.logger.Info("Bulk provisioning term",
		zap.Int("term", opts.Term),
		zap.String("school_code", opts.SchoolCode),
		zap.Int("candidates", len(candidates)),
	)

	candidateSet := make(map[string]bool, len(candidates))
	for _, section := range candidates {
		candidateSet[section.SectionCode] = true
	}

	claimed := make(map[string]bool)
	for _, section := range candidates {
		if err := ctx.Err(); err != nil {
			return err
		}
		if claimed[section.SectionCode] {
			continue
		}
		claimed[section.SectionCode] = true

		siblings, err := s.sections.CourseSectionCodes(ctx, section.SectionCode)
		if err != nil {
			s.logger.Error("Failed to resolve course sections", zap.String("section_code", section.SectionCode), zap.Error(err))
			continue
		}
		var included []string
		for _, code := range siblings {
			if claimed[code] {
				continue
			}
			claimed[code] = true
			if candidateSet[code] {
				included = append(included, code)
			}
		}

		if err := s.provisionCourse(ctx, &section, included, opts); err != nil {
			s.logger.Error("Bulk provisioning failed for course",
				zap.String("section_code", section.SectionCode),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (s *BulkService) provisionCourse(ctx context.Context, section *model.Section, included []string, opts BulkOptions) error {
	request := &model.Request{
		SectionCode:            section.SectionCode,
		Requester:              opts.Requester,
		Reserves:               true,
		AdditionalInstructions: AutoRequestInstructions,
		Status:                 model.StatusApproved,
		IncludedSections:       included,
	}

	existing, err := s.canvas.GetSectionBySISID(ctx, section.SISID())
	if err != nil {
		return fmt.Errorf("look up section %s: %w", section.SISID(), err)
	}
	if existing != nil {
		// A Canvas section with this SIS id means the site already exists
		// outside the request flow. Record a completed request so the
		// sections stop surfacing as unrequested. A course shell without
		// its section is a partial build and falls through to a rebuild.
		request.Status = model.StatusCompleted
		if err := s.requests.Create(ctx, request); err != nil {
			return err
		}
		s.logger.Info("Recorded existing course site",
			zap.String("section_code", section.SectionCode),
			zap.Int64("canvas_section_id", existing.ID),
		)
		return nil
	}

	if err := s.requests.Create(ctx, request); err != nil {
		return err
	}
	if err := s.builder.Build(ctx, section.SectionCode); err != nil {
		return err
	}

	course, err := s.canvas.GetCourseBySISID(ctx, section.SISID())
	if err != nil {
		return fmt.Errorf("look up provisioned course %s: %w", section.SISID(), err)
	}

	if opts.EnableTools {
		tools := opts.Tools
		if len(tools) == 0 {
			tools = DefaultTools
		}
		if err := s.enableTools(ctx, course.ID, tools, opts.ByLabel); err != nil {
			return err
		}
	}
	if opts.Publish {
		if err := s.canvas.PublishCourse(ctx, course.ID); err != nil {
			return fmt.Errorf("publish course %d: %w", course.ID, err)
		}
	}
	return nil
}

// enableTools unhides the requested tool tabs at a fixed navigation
// position. Tabs already public are left alone.
func (s *BulkService) enableTools(ctx context.Context, courseID int64, tools map[string]string, byLabel bool) error {
	tabs, err := s.canvas.ListTabs(ctx, courseID)
	if err != nil {
		return fmt.Errorf("list tabs: %w", err)
	}
	for tabID, label := range tools {
		tab := findTab(tabs, tabID, label, byLabel)
		if tab == nil {
			s.logger.Warn("Tool tab not found in course",
				zap.Int64("course_id", courseID),
				zap.String("tab_id", tabID),
				zap.String("label", label),
			)
			continue
		}
		if tab.Visibility == "public" {
			continue
		}
		if err := s.canvas.UpdateTab(ctx, courseID, tab.ID, false, toolTabPosition); err != nil {
			return fmt.Errorf("enable tab %s: %w", tab.ID, err)
		}
	}
	return nil
}

func findTab(tabs []canvas.Tab, tabID, label string, byLabel bool) *canvas.Tab {
	for i := range tabs {
		if byLabel {
			if tabs[i].Label == label {
				return &tabs[i]
			}
		} else if tabs[i].ID == tabID {
			return &tabs[i]
		}
	}
	return nil
}
