package tool

import (
	"github.com/cloudwego/eino/schema"

	strategyx "github.com/tanpawarit/Tactician-Marketing-Campaign-Agent/agent/strategy"
)

// Tool names are fixed; there is no dynamic discovery.
const (
	NameGetAccountContext     = "get_account_context"
	NameGetCampaignHistory    = "get_campaign_history"
	NameGetActiveAutomations  = "get_active_automations"
	NameGetPerformance        = "get_campaign_performance"
	NameSegmentContacts       = "segment_contacts"
	NameBuildStrategy         = "build_strategy"
	NameCreateCampaignDraft   = "create_campaign_draft"
	NameCreateAutomationDraft = "create_automation_draft"
)

// contentParams is shared by the two draft tools. Subject stays optional so
// SMS and WhatsApp content validates without one.
func contentParams() map[string]*schema.ParameterInfo {
	return map[string]*schema.ParameterInfo{
		"subject": {Type: schema.String, Desc: "Subject line (email) or header"},
		"body":    {Type: schema.String, Desc: "Message body", Required: true},
		"cta":     {Type: schema.String, Desc: "Call to action label", Required: true},
		"offer":   {Type: schema.String, Desc: "Optional offer or incentive"},
	}
}

// catalog builds the model-facing tool specs. The build_strategy intent enum
// comes from the loaded policy table so the two can never drift apart.
func catalog(policy *strategyx.Policy) []*schema.ToolInfo {
	return []*schema.ToolInfo{
		{
			Name:        NameGetAccountContext,
			Desc:        "Fetch the account's business profile: industry, plan, contact counts, enabled channels with opt-ins, engagement summary.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
		},
		{
			Name: NameGetCampaignHistory,
			Desc: "Fetch recent campaigns with engagement and revenue metrics, newest first.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"limit": {Type: schema.Integer, Desc: "Max campaigns to return (default 10)"},
			}),
		},
		{
			Name:        NameGetActiveAutomations,
			Desc:        "List currently active automation workflows so new journeys do not overlap existing ones.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
		},
		{
			Name: NameGetPerformance,
			Desc: "Aggregate campaign performance for a period, overall and per channel.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"period": {
					Type:     schema.String,
					Desc:     "Reporting window",
					Enum:     []string{"last_7d", "last_30d", "last_90d"},
					Required: true,
				},
			}),
		},
		{
			Name: NameSegmentContacts,
			Desc: "Partition the audience into high/mid/standard value tiers using RFM-style scoring. Run this before building a strategy.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"base_filter": {
					Type:     schema.Object,
					Desc:     "Which contacts to segment",
					Required: true,
					SubParams: map[string]*schema.ParameterInfo{
						"type": {
							Type:     schema.String,
							Desc:     "Base audience",
							Enum:     []string{"no_purchase", "all_subscribers", "list_members", "event_registrants"},
							Required: true,
						},
						"days":    {Type: schema.Integer, Desc: "Day window for no_purchase"},
						"list_id": {Type: schema.String, Desc: "List id for list_members"},
					},
				},
				"segmentation_axis": {
					Type:     schema.String,
					Desc:     "Primary value signal",
					Enum:     []string{"ltv", "engagement", "lead_score", "blended"},
					Required: true,
				},
			}),
		},
		{
			Name: NameBuildStrategy,
			Desc: "Assemble the per-tier campaign strategy from the latest segmentation. Returns cohort recommendations with draft outlines.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"intent": {
					Type:     schema.String,
					Desc:     "The marketer's goal in their own words",
					Required: true,
				},
				"intent_category": {
					Type:     schema.String,
					Desc:     "Closest intent category",
					Enum:     policy.Categories(),
					Required: true,
				},
				"campaign_name": {Type: schema.String, Desc: "Working campaign name"},
			}),
		},
		{
			Name: NameCreateCampaignDraft,
			Desc: "Persist a campaign draft for one cohort. Only call after the marketer approves the strategy.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"name": {Type: schema.String, Desc: "Campaign name", Required: true},
				"channel": {
					Type:     schema.String,
					Desc:     "Send channel",
					Enum:     []string{"email", "sms", "whatsapp"},
					Required: true,
				},
				"cohort": {
					Type:     schema.String,
					Desc:     "Target cohort",
					Enum:     []string{"high_value", "mid_value", "standard"},
					Required: true,
				},
				"audience_size": {Type: schema.Integer, Desc: "Contacts targeted", Required: true},
				"content": {
					Type:      schema.Object,
					Desc:      "Message content",
					Required:  true,
					SubParams: contentParams(),
				},
				"schedule": {
					Type: schema.Object,
					Desc: "Send scheduling",
					SubParams: map[string]*schema.ParameterInfo{
						"type": {
							Type:     schema.String,
							Desc:     "Scheduling mode",
							Enum:     []string{"individual_optimal", "segment_optimal", "batch"},
							Required: true,
						},
					},
				},
			}),
		},
		{
			Name: NameCreateAutomationDraft,
			Desc: "Persist an automation workflow draft for one cohort. Only call after the marketer approves the strategy.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"name": {Type: schema.String, Desc: "Workflow name", Required: true},
				"cohort": {
					Type:     schema.String,
					Desc:     "Target cohort",
					Enum:     []string{"high_value", "mid_value", "standard"},
					Required: true,
				},
				"trigger": {
					Type:     schema.Object,
					Desc:     "Entry trigger",
					Required: true,
					SubParams: map[string]*schema.ParameterInfo{
						"type": {
							Type:     schema.String,
							Desc:     "Trigger type",
							Enum:     []string{"no_purchase_days", "cart_abandoned", "order_completed", "contact_created", "date_based"},
							Required: true,
						},
						"value": {Type: schema.String, Desc: "Trigger parameter, e.g. day count"},
					},
				},
				"steps": {
					Type:     schema.Array,
					Desc:     "Ordered workflow steps",
					Required: true,
					ElemInfo: &schema.ParameterInfo{
						Type: schema.Object,
						SubParams: map[string]*schema.ParameterInfo{
							"order":     {Type: schema.Integer, Desc: "Step position, 1-based", Required: true},
							"channel":   {Type: schema.String, Desc: "Step channel", Enum: []string{"email", "sms", "whatsapp"}, Required: true},
							"delay":     {Type: schema.String, Desc: "Delay before the step, e.g. 0d, 3d"},
							"condition": {Type: schema.String, Desc: "Optional gate, e.g. not_converted"},
							"content":   {Type: schema.Object, Desc: "Step content", Required: true, SubParams: contentParams()},
						},
					},
				},
				"exit_conditions": {
					Type:     schema.Array,
					Desc:     "Conditions that remove a contact from the flow",
					ElemInfo: &schema.ParameterInfo{Type: schema.String},
				},
			}),
		},
	}
}
