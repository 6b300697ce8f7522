package segment

import (
	"errors"
	"fmt"
	"math"

	"github.com/sourcegraph/conc/iter"

	accountx "github.com/tanpawarit/Tactician-Marketing-Campaign-Agent/agent/account"
)

type Tier string

const (
	TierHigh     Tier = "high"
	TierMid      Tier = "mid"
	TierStandard Tier = "standard"
)

// CohortKey is the tool-facing identifier for a tier.
func (t Tier) CohortKey() string {
	switch t {
	case TierHigh:
		return "high_value"
	case TierMid:
		return "mid_value"
	default:
		return "standard"
	}
}

// Segmentation axes. The axis picks the weight row used for scoring.
const (
	AxisLTV        = "ltv"
	AxisEngagement = "engagement"
	AxisLeadScore  = "lead_score"
	AxisBlended    = "blended"
)

type AxisWeights struct {
	Recency    float64
	Frequency  float64
	Monetary   float64
	Engagement float64
	Lead       float64
}

// axisWeights is the scoring table: one weight row per supported axis. Rows
// sum to 1 so scores stay in [0, 1].
var axisWeights = map[string]AxisWeights{
	AxisLTV:        {Recency: 0.25, Frequency: 0.25, Monetary: 0.50},
	AxisEngagement: {Recency: 0.30, Engagement: 0.70},
	AxisLeadScore:  {Recency: 0.20, Engagement: 0.30, Lead: 0.50},
	AxisBlended:    {Recency: 0.25, Frequency: 0.20, Monetary: 0.30, Engagement: 0.25},
}

// Config carries every tunable of the tiering algorithm. Nothing here is
// hardcoded in the scoring path.
type Config struct {
	HighThreshold      float64 `envconfig:"HIGH_THRESHOLD" split_words:"true" default:"0.65"`
	MidThreshold       float64 `envconfig:"MID_THRESHOLD" split_words:"true" default:"0.35"`
	RecencyRefDays     float64 `envconfig:"RECENCY_REF_DAYS" split_words:"true" default:"365"`
	FrequencyRefOrders float64 `envconfig:"FREQUENCY_REF_ORDERS" split_words:"true" default:"12"`
	MonetaryRefValue   float64 `envconfig:"MONETARY_REF_VALUE" split_words:"true" default:"1000"`
	ChannelFloor       float64 `envconfig:"CHANNEL_FLOOR" split_words:"true" default:"0.25"`
}

// DefaultConfig mirrors the envconfig defaults for direct construction.
func DefaultConfig() Config {
	return Config{
		HighThreshold:      0.65,
		MidThreshold:       0.35,
		RecencyRefDays:     365,
		FrequencyRefOrders: 12,
		MonetaryRefValue:   1000,
		ChannelFloor:       0.25,
	}
}

type Cohort struct {
	Tier          Tier     `json:"tier"`
	Key           string   `json:"key"`
	Size          int      `json:"size"`
	Share         float64  `json:"share"`
	Criteria      string   `json:"criteria"`
	Channels      []string `json:"channels"`
	AvgLTV        float64  `json:"avg_ltv"`
	AvgOrders     float64  `json:"avg_orders_per_year"`
	AvgEngagement float64  `json:"avg_engagement"`
}

// Segmentation is one deterministic partition of an audience: the three tiers
// are mutually exclusive and exhaustive, so cohort sizes sum to TotalContacts.
type Segmentation struct {
	Audience      string   `json:"audience"`
	Axis          string   `json:"axis"`
	TotalContacts int      `json:"total_contacts"`
	Cohorts       []Cohort `json:"cohorts"`
}

func (s *Segmentation) Cohort(key string) (Cohort, bool) {
	if s == nil {
		return Cohort{}, false
	}
	for _, c := range s.Cohorts {
		if c.Key == key || string(c.Tier) == key {
			return c, true
		}
	}
	return Cohort{}, false
}

type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) (*Engine, error) {
	if cfg.MidThreshold <= 0 || cfg.HighThreshold <= cfg.MidThreshold {
		return nil, fmt.Errorf("thresholds must satisfy 0 < mid < high, got mid=%v high=%v", cfg.MidThreshold, cfg.HighThreshold)
	}
	if cfg.RecencyRefDays <= 0 || cfg.FrequencyRefOrders <= 0 || cfg.MonetaryRefValue <= 0 {
		return nil, errors.New("scoring reference values must be > 0")
	}
	if cfg.ChannelFloor < 0 || cfg.ChannelFloor > 1 {
		return nil, errors.New("channel floor must be within [0, 1]")
	}
	return &Engine{cfg: cfg}, nil
}

type scoredBucket struct {
	bucket accountx.SignalBucket
	tier   Tier
}

// Segment partitions the audience into the three value tiers. Identical
// signals, axis and config always produce identical output: scoring is pure
// arithmetic and the parallel map preserves input order.
func (e *Engine) Segment(signals *accountx.ValueSignals, axis string) (*Segmentation, error) {
	if e == nil {
		return nil, errors.New("nil engine")
	}
	if signals == nil {
		return nil, errors.New("nil value signals")
	}
	weights, ok := axisWeights[axis]
	if !ok {
		return nil, fmt.Errorf("unsupported segmentation axis %q", axis)
	}

	scored := iter.Map(signals.Buckets, func(b *accountx.SignalBucket) scoredBucket {
		return scoredBucket{bucket: *b, tier: e.TierFor(e.Score(*b, weights))}
	})

	result := &Segmentation{
		Audience:      signals.Audience,
		Axis:          axis,
		TotalContacts: signals.TotalContacts,
		Cohorts:       make([]Cohort, 0, 3),
	}
	for _, tier := range []Tier{TierHigh, TierMid, TierStandard} {
		result.Cohorts = append(result.Cohorts, e.aggregate(tier, axis, scored, signals.TotalContacts))
	}
	return result, nil
}

// Score computes the weighted value score of one bucket on a given weight row.
// Every component is normalized into [0, 1] against its config reference.
func (e *Engine) Score(b accountx.SignalBucket, w AxisWeights) float64 {
	r := clamp01(1 - b.RecencyDays/e.cfg.RecencyRefDays)
	f := clamp01(b.OrdersPerYear / e.cfg.FrequencyRefOrders)
	m := clamp01(b.LifetimeValue / e.cfg.MonetaryRefValue)
	eng := clamp01(b.EngagementScore)
	lead := clamp01(b.LeadScore)
	return w.Recency*r + w.Frequency*f + w.Monetary*m + w.Engagement*eng + w.Lead*lead
}

// TierFor maps a score onto a tier. A score exactly on a boundary lands in
// the higher tier.
func (e *Engine) TierFor(score float64) Tier {
	switch {
	case score >= e.cfg.HighThreshold:
		return TierHigh
	case score >= e.cfg.MidThreshold:
		return TierMid
	default:
		return TierStandard
	}
}

func (e *Engine) aggregate(tier Tier, axis string, scored []scoredBucket, total int) Cohort {
	cohort := Cohort{
		Tier:     tier,
		Key:      tier.CohortKey(),
		Criteria: e.criteria(tier, axis),
		Channels: []string{},
	}

	var ltvSum, ordersSum, engSum float64
	var emailIn, smsIn, waIn int
	for _, s := range scored {
		if s.tier != tier {
			continue
		}
		n := float64(s.bucket.Contacts)
		cohort.Size += s.bucket.Contacts
		ltvSum += s.bucket.LifetimeValue * n
		ordersSum += s.bucket.OrdersPerYear * n
		engSum += s.bucket.EngagementScore * n
		emailIn += s.bucket.OptIns.Email
		smsIn += s.bucket.OptIns.SMS
		waIn += s.bucket.OptIns.WhatsApp
	}

	if cohort.Size == 0 {
		return cohort
	}

	n := float64(cohort.Size)
	cohort.AvgLTV = round2(ltvSum / n)
	cohort.AvgOrders = round2(ordersSum / n)
	cohort.AvgEngagement = round3(engSum / n)
	if total > 0 {
		cohort.Share = round4(n / float64(total))
	}

	// Fixed channel order keeps output stable across runs.
	for _, ch := range []struct {
		name  string
		opted int
	}{
		{accountx.ChannelEmail, emailIn},
		{accountx.ChannelSMS, smsIn},
		{accountx.ChannelWhatsApp, waIn},
	} {
		if float64(ch.opted)/n >= e.cfg.ChannelFloor {
			cohort.Channels = append(cohort.Channels, ch.name)
		}
	}
	return cohort
}

func (e *Engine) criteria(tier Tier, axis string) string {
	switch tier {
	case TierHigh:
		return fmt.Sprintf("%s score >= %.2f", axis, e.cfg.HighThreshold)
	case TierMid:
		return fmt.Sprintf("%s score in [%.2f, %.2f)", axis, e.cfg.MidThreshold, e.cfg.HighThreshold)
	default:
		return fmt.Sprintf("%s score < %.2f", axis, e.cfg.MidThreshold)
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }

func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
