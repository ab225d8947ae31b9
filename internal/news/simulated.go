package news

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"advisory-trading-bot/internal/types"
)

const simulatedSource = "Simulation"

type template struct {
	title       string
	description string
}

var templates = []template{
	{
		title:       "Bitcoin reaches a new high of ${price} this week",
		description: "Analysts attribute the rally to growing institutional adoption and positive developments across the sector.",
	},
	{
		title:       "Traditional finance giants turn to cryptocurrencies",
		description: "More financial institutions are adding crypto to their services, a sign of growing mainstream adoption.",
	},
	{
		title:       "Technical analysis: Bitcoin RSI points to ${signal}",
		description: "Technical indicators suggest a possible ${direction} for Bitcoin in the coming days.",
	},
	{
		title:       "Blockchain innovation: new DeFi protocol launched",
		description: "A new protocol promises faster settlement and better security across the DeFi ecosystem.",
	},
	{
		title:       "Crypto regulation: ${country} announces a favourable framework",
		description: "New rules aim to encourage innovation while protecting investors.",
	},
}

var (
	countries  = []string{"France", "The United States", "The United Kingdom", "Japan", "The European Union"}
	signals    = []string{"an overbought zone", "an oversold zone", "an uptrend", "a consolidation"}
	directions = []string{"rise", "consolidation", "technical correction", "accumulation"}
)

// Simulated produces one randomized headline per template, newest first and an
// hour apart.
type Simulated struct {
	mu  sync.Mutex
	rnd *rand.Rand
	now func() time.Time
}

func NewSimulated(seed int64) *Simulated {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Simulated{rnd: rand.New(rand.NewSource(seed)), now: time.Now}
}

func (s *Simulated) LatestHeadlines(ctx context.Context) ([]types.NewsItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	items := make([]types.NewsItem, 0, len(templates))
	for i, t := range templates {
		title := t.title
		desc := t.description

		if strings.Contains(title, "${price}") {
			title = strings.Replace(title, "${price}", "$"+groupThousands(s.rnd.Intn(20000)+40000), 1)
		}
		if strings.Contains(title, "${signal}") {
			title = strings.Replace(title, "${signal}", pick(s.rnd, signals), 1)
		}
		if strings.Contains(title, "${country}") {
			title = strings.Replace(title, "${country}", pick(s.rnd, countries), 1)
		}
		if strings.Contains(desc, "${direction}") {
			desc = strings.Replace(desc, "${direction}", pick(s.rnd, directions), 1)
		}

		items = append(items, types.NewsItem{
			Title:       title,
			Description: desc,
			URL:         fmt.Sprintf("https://example.com/crypto-news/%d-%d", now.UnixMilli(), i),
			Source:      simulatedSource,
			PublishedAt: now.Add(-time.Duration(i) * time.Hour),
		})
	}
	return items, nil
}

func pick(r *rand.Rand, from []string) string {
	return from[r.Intn(len(from))]
}

func groupThousands(n int) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
