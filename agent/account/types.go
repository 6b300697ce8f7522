package account

import "time"

// Channel identifiers shared across context, segmentation and drafts.
const (
	ChannelEmail    = "email"
	ChannelSMS      = "sms"
	ChannelWhatsApp = "whatsapp"
)

// Audience keys for value-signal sets.
const (
	AudienceAllCustomers = "all_customers"
	AudienceNoPurchase90 = "no_purchase_90d"
)

// BaseFilter narrows which contacts a segmentation run looks at.
type BaseFilter struct {
	Type   string `json:"type"` // no_purchase | all_subscribers | list_members | event_registrants
	Days   int    `json:"days,omitempty"`
	ListID string `json:"list_id,omitempty"`
}

// AudienceKey maps a filter onto the value-signal set that backs it.
func (f BaseFilter) AudienceKey() string {
	if f.Type == "no_purchase" {
		return AudienceNoPurchase90
	}
	return AudienceAllCustomers
}

type ChannelStatus struct {
	Channel string `json:"channel"`
	Enabled bool   `json:"enabled"`
	OptedIn int    `json:"opted_in"`
}

type EngagementSummary struct {
	AvgOpenRate   float64 `json:"avg_open_rate"`
	AvgClickRate  float64 `json:"avg_click_rate"`
	ListGrowth90d float64 `json:"list_growth_90d"`
}

// AccountContext is the business profile the agent grounds its advice in.
// Fetched lazily once per session and cached on the session, never across
// sessions.
type AccountContext struct {
	AccountID        string            `json:"account_id"`
	BusinessName     string            `json:"business_name"`
	Industry         string            `json:"industry"`
	Plan             string            `json:"plan"`
	Currency         string            `json:"currency"`
	TotalContacts    int               `json:"total_contacts"`
	AvgOrderValue    float64           `json:"avg_order_value"`
	AvgLifetimeValue float64           `json:"avg_lifetime_value"`
	TopCategories    []string          `json:"top_categories"`
	Channels         []ChannelStatus   `json:"channels"`
	Engagement       EngagementSummary `json:"engagement"`
}

type CampaignRecord struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Channel        string    `json:"channel"`
	Status         string    `json:"status"`
	SentAt         time.Time `json:"sent_at"`
	Audience       int       `json:"audience"`
	OpenRate       float64   `json:"open_rate"`
	ClickRate      float64   `json:"click_rate"`
	ConversionRate float64   `json:"conversion_rate"`
	Revenue        float64   `json:"revenue"`
}

type AutomationRecord struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Trigger        string  `json:"trigger"`
	Status         string  `json:"status"`
	Steps          int     `json:"steps"`
	EnteredLast30d int     `json:"entered_last_30d"`
	ConversionRate float64 `json:"conversion_rate"`
}

type ChannelPerformance struct {
	Channel   string  `json:"channel"`
	Campaigns int     `json:"campaigns"`
	OpenRate  float64 `json:"open_rate"`
	ClickRate float64 `json:"click_rate"`
	Revenue   float64 `json:"revenue"`
}

type PerformanceReport struct {
	Period         string               `json:"period"`
	CampaignsSent  int                  `json:"campaigns_sent"`
	AvgOpenRate    float64              `json:"avg_open_rate"`
	AvgClickRate   float64              `json:"avg_click_rate"`
	ConversionRate float64              `json:"conversion_rate"`
	TotalRevenue   float64              `json:"total_revenue"`
	ByChannel      []ChannelPerformance `json:"by_channel"`
	BestCampaign   *CampaignRecord      `json:"best_campaign,omitempty"`
}

type ChannelOptIns struct {
	Email    int `json:"email"`
	SMS      int `json:"sms"`
	WhatsApp int `json:"whatsapp"`
}

// SignalBucket aggregates contacts that share a value profile, the way an
// analytics backend reports RFM histograms. Scoring a bucket scores every
// contact in it.
type SignalBucket struct {
	Contacts        int           `json:"contacts"`
	RecencyDays     float64       `json:"recency_days"`
	OrdersPerYear   float64       `json:"orders_per_year"`
	AvgOrderValue   float64       `json:"avg_order_value"`
	LifetimeValue   float64       `json:"lifetime_value"`
	EngagementScore float64       `json:"engagement_score"` // 0..1
	LeadScore       float64       `json:"lead_score"`       // 0..1
	OptIns          ChannelOptIns `json:"opt_ins"`
}

type ValueSignals struct {
	AccountID     string         `json:"account_id"`
	Audience      string         `json:"audience"`
	TotalContacts int            `json:"total_contacts"`
	Buckets       []SignalBucket `json:"buckets"`
}
