package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"

	accountx "github.com/tanpawarit/Tactician-Marketing-Campaign-Agent/agent/account"
	contractx "github.com/tanpawarit/Tactician-Marketing-Campaign-Agent/agent/contract"
	draftx "github.com/tanpawarit/Tactician-Marketing-Campaign-Agent/agent/draft"
	segmentx "github.com/tanpawarit/Tactician-Marketing-Campaign-Agent/agent/segment"
	strategyx "github.com/tanpawarit/Tactician-Marketing-Campaign-Agent/agent/strategy"
)

// Registry binds the tool catalog to the capabilities behind it. It holds no
// per-session state; Session mints a dispatcher that does.
type Registry struct {
	source    accountx.Source
	engine    *segmentx.Engine
	assembler *strategyx.Assembler
	drafts    draftx.Store

	specs      []*schema.ToolInfo
	validators map[string]*gojsonschema.Schema
}

func NewRegistry(source accountx.Source, engine *segmentx.Engine, assembler *strategyx.Assembler, drafts draftx.Store) (*Registry, error) {
	if source == nil {
		return nil, errors.New("nil account source")
	}
	if engine == nil {
		return nil, errors.New("nil segmentation engine")
	}
	if assembler == nil {
		return nil, errors.New("nil strategy assembler")
	}
	if drafts == nil {
		return nil, errors.New("nil draft store")
	}

	specs := catalog(assembler.Policy())
	validators, err := compileValidators(specs)
	if err != nil {
		return nil, err
	}

	return &Registry{
		source:     source,
		engine:     engine,
		assembler:  assembler,
		drafts:     drafts,
		specs:      specs,
		validators: validators,
	}, nil
}

// compileValidators turns each tool spec into a JSON Schema validator so
// arguments are checked against the exact contract the model was shown.
func compileValidators(specs []*schema.ToolInfo) (map[string]*gojsonschema.Schema, error) {
	out := make(map[string]*gojsonschema.Schema, len(specs))
	for _, info := range specs {
		if info == nil || info.ParamsOneOf == nil {
			return nil, fmt.Errorf("tool spec %q has no parameter schema", specName(info))
		}
		doc, err := info.ParamsOneOf.ToOpenAPIV3()
		if err != nil {
			return nil, fmt.Errorf("tool %s: convert params: %w", info.Name, err)
		}
		raw, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("tool %s: marshal params: %w", info.Name, err)
		}
		compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			return nil, fmt.Errorf("tool %s: compile schema: %w", info.Name, err)
		}
		out[info.Name] = compiled
	}
	return out, nil
}

func specName(info *schema.ToolInfo) string {
	if info == nil {
		return "<nil>"
	}
	return info.Name
}

// Session returns the dispatcher for one loop run. The session caches the
// account context after the first fetch and remembers the latest
// segmentation; both die with the session.
func (r *Registry) Session(accountID string) contractx.Dispatcher {
	return &session{reg: r, accountID: accountID}
}

// session is driven by a single loop goroutine, so its fields need no lock.
type session struct {
	reg       *Registry
	accountID string

	context      *accountx.AccountContext
	segmentation *segmentx.Segmentation
}

func (s *session) Specs() []*schema.ToolInfo {
	return s.reg.specs
}

func (s *session) Dispatch(ctx context.Context, call contractx.ToolCall) (contractx.ToolResult, error) {
	res := contractx.ToolResult{CallID: call.ID, Tool: call.Name}

	payload, artifact, err := s.execute(ctx, call)
	if err != nil {
		err = classify(err)
		if contractx.IsFatal(err) {
			return res, err
		}
		log.Warn().Err(err).Str("tool", call.Name).Str("call_id", call.ID).Msg("tool call failed")
		res.Error = err.Error()
		return res, nil
	}

	log.Debug().Str("tool", call.Name).Str("call_id", call.ID).Msg("tool call succeeded")
	res.Payload = payload
	res.Artifact = artifact
	return res, nil
}

// classify folds errors without a sentinel into ErrToolExecution so the loop
// only ever sees taxonomy errors.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", contractx.ErrUpstreamTimeout, err)
	case errors.Is(err, contractx.ErrUnknownTool),
		errors.Is(err, contractx.ErrInvalidArguments),
		errors.Is(err, contractx.ErrToolExecution),
		errors.Is(err, contractx.ErrAccountNotFound),
		errors.Is(err, contractx.ErrInsufficientContext),
		contractx.IsFatal(err):
		return err
	default:
		return fmt.Errorf("%w: %v", contractx.ErrToolExecution, err)
	}
}

func (s *session) execute(ctx context.Context, call contractx.ToolCall) (any, *contractx.Artifact, error) {
	validator, known := s.reg.validators[call.Name]
	if !known {
		return nil, nil, fmt.Errorf("%w: %s", contractx.ErrUnknownTool, call.Name)
	}
	args := strings.TrimSpace(call.Arguments)
	if args == "" {
		args = "{}"
	}
	if err := validateArgs(validator, args); err != nil {
		return nil, nil, err
	}

	switch call.Name {
	case NameGetAccountContext:
		payload, err := s.accountContext(ctx)
		return payload, nil, err
	case NameGetCampaignHistory:
		return s.campaignHistory(ctx, args)
	case NameGetActiveAutomations:
		payload, err := s.reg.source.ActiveAutomations(ctx, s.accountID)
		return payload, nil, err
	case NameGetPerformance:
		return s.performance(ctx, args)
	case NameSegmentContacts:
		return s.segmentContacts(ctx, args)
	case NameBuildStrategy:
		return s.buildStrategy(args)
	case NameCreateCampaignDraft:
		return s.createCampaignDraft(ctx, args)
	case NameCreateAutomationDraft:
		return s.createAutomationDraft(ctx, args)
	}
	return nil, nil, fmt.Errorf("%w: %s", contractx.ErrUnknownTool, call.Name)
}

func validateArgs(validator *gojsonschema.Schema, args string) error {
	result, err := validator.Validate(gojsonschema.NewStringLoader(args))
	if err != nil {
		return fmt.Errorf("%w: %v", contractx.ErrInvalidArguments, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", contractx.ErrInvalidArguments, strings.Join(msgs, "; "))
	}
	return nil
}

func decodeArgs(args string, into any) error {
	if err := json.Unmarshal([]byte(args), into); err != nil {
		return fmt.Errorf("%w: %v", contractx.ErrInvalidArguments, err)
	}
	return nil
}

func (s *session) accountContext(ctx context.Context) (*accountx.AccountContext, error) {
	if s.context != nil {
		return s.context, nil
	}
	acct, err := s.reg.source.AccountContext(ctx, s.accountID)
	if err != nil {
		return nil, err
	}
	s.context = acct
	return acct, nil
}

func (s *session) campaignHistory(ctx context.Context, args string) (any, *contractx.Artifact, error) {
	var p struct {
		Limit int `json:"limit"`
	}
	if err := decodeArgs(args, &p); err != nil {
		return nil, nil, err
	}
	records, err := s.reg.source.CampaignHistory(ctx, s.accountID, p.Limit)
	return records, nil, err
}

func (s *session) performance(ctx context.Context, args string) (any, *contractx.Artifact, error) {
	var p struct {
		Period string `json:"period"`
	}
	if err := decodeArgs(args, &p); err != nil {
		return nil, nil, err
	}
	report, err := s.reg.source.Performance(ctx, s.accountID, p.Period)
	return report, nil, err
}

func (s *session) segmentContacts(ctx context.Context, args string) (any, *contractx.Artifact, error) {
	var p struct {
		BaseFilter accountx.BaseFilter `json:"base_filter"`
		Axis       string              `json:"segmentation_axis"`
	}
	if err := decodeArgs(args, &p); err != nil {
		return nil, nil, err
	}
	signals, err := s.reg.source.ValueSignals(ctx, s.accountID, p.BaseFilter)
	if err != nil {
		return nil, nil, err
	}
	seg, err := s.reg.engine.Segment(signals, p.Axis)
	if err != nil {
		return nil, nil, err
	}
	s.segmentation = seg
	return seg, &contractx.Artifact{Kind: contractx.ArtifactSegment, Payload: seg}, nil
}

func (s *session) buildStrategy(args string) (any, *contractx.Artifact, error) {
	var p struct {
		Intent         string `json:"intent"`
		IntentCategory string `json:"intent_category"`
		CampaignName   string `json:"campaign_name"`
	}
	if err := decodeArgs(args, &p); err != nil {
		return nil, nil, err
	}
	art, err := s.reg.assembler.BuildStrategy(p.Intent, p.IntentCategory, p.CampaignName, s.segmentation)
	if err != nil {
		return nil, nil, err
	}
	return art, &contractx.Artifact{Kind: contractx.ArtifactStrategy, Payload: art}, nil
}

func (s *session) createCampaignDraft(ctx context.Context, args string) (any, *contractx.Artifact, error) {
	var p strategyx.CampaignParams
	if err := decodeArgs(args, &p); err != nil {
		return nil, nil, err
	}
	d, err := s.reg.assembler.DraftCampaign(p)
	if err != nil {
		return nil, nil, err
	}
	rec, err := s.reg.drafts.SaveCampaign(ctx, d)
	if err != nil {
		return nil, nil, err
	}
	return rec, &contractx.Artifact{Kind: contractx.ArtifactCampaign, ID: rec.ID, Payload: rec}, nil
}

func (s *session) createAutomationDraft(ctx context.Context, args string) (any, *contractx.Artifact, error) {
	var p strategyx.AutomationParams
	if err := decodeArgs(args, &p); err != nil {
		return nil, nil, err
	}
	d, err := s.reg.assembler.DraftAutomation(p)
	if err != nil {
		return nil, nil, err
	}
	rec, err := s.reg.drafts.SaveAutomation(ctx, d)
	if err != nil {
		return nil, nil, err
	}
	return rec, &contractx.Artifact{Kind: contractx.ArtifactAutomation, ID: rec.ID, Payload: rec}, nil
}
