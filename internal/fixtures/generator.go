package fixtures

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/okian/cocstats/internal/domain/model"
)

// Date layouts the bot has been seen writing.
const (
	layoutUS       = "1/2/2006, 3:04:05 PM"
	layoutFeedback = "02/01/2006 15:04"
)

var (
	firstNames = []string{"Barbarian", "Archer", "Giant", "Goblin", "Wizard", "Dragon", "Pekka", "Miner", "Valkyrie", "Golem"}
	messages   = []string{
		"This is a great app but I found a bug",
		"Please add a feature to pick troops",
		"Bot crashed after the update",
		"Love it, amazing farming",
		"Could you add support for builder base",
		"It works fine",
		"Doesn't work on my phone, error on start",
	}
	newsItems = []string{
		"<b>Season update</b> is live!",
		"Maintenance tonight &amp; tomorrow",
		"New keys are available",
	}
)

// Generator builds reproducible fixture documents.
type Generator struct {
	rng  *rand.Rand
	ids  *rand.ChaCha8
	now  time.Time
	seed uint64
}

// NewGenerator creates a generator. A zero seed is replaced by one derived
// from now.
func NewGenerator(seed uint64, now time.Time) *Generator {
	if seed == 0 {
		seed = uint64(now.UnixNano())
	}
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:], seed)
	ids := rand.NewChaCha8(key)
	return &Generator{
		rng:  rand.New(rand.NewPCG(seed, seed>>1|1)),
		ids:  ids,
		now:  now,
		seed: seed,
	}
}

// Seed returns the seed in use.
func (g *Generator) Seed() uint64 { return g.seed }

// Generate returns a fixture with the four collections at the top level.
func (g *Generator) Generate(users, feedback int) ([]byte, error) {
	doc := map[string]any{
		model.CollectionUsers:    g.users(users),
		model.CollectionFeedback: g.feedback(feedback),
		model.CollectionNews:     map[string]string{"message": newsItems[g.rng.IntN(len(newsItems))]},
	}

	var gold, elixir, dark int64
	for _, raw := range doc[model.CollectionUsers].(map[string]map[string]any) {
		loot := raw["loot"].(map[string]int64)
		gold += loot["gold"]
		elixir += loot["elixir"]
		dark += loot["dark_elixir"]
	}
	doc[model.CollectionGlobalLoot] = map[string]int64{"gold": gold, "elixir": elixir, "dark_elixir": dark}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal fixture: %w", err)
	}
	return out, nil
}

func (g *Generator) users(n int) map[string]map[string]any {
	out := make(map[string]map[string]any, n)
	for i := 0; i < n; i++ {
		id, err := uuid.NewRandomFromReader(g.ids)
		if err != nil {
			id = uuid.New()
		}
		registered := g.now.Add(-time.Duration(g.rng.IntN(365*24)) * time.Hour)
		rec := map[string]any{
			"name":            firstNames[g.rng.IntN(len(firstNames))] + strconv.Itoa(i),
			"registered_time": g.date(registered),
			"used_key":        fmt.Sprintf("KEY-%04d", g.rng.IntN(10_000)),
			"attack_count":    g.attacks(),
			"loot": map[string]int64{
				"gold":        g.rng.Int64N(50_000_000),
				"elixir":      g.rng.Int64N(50_000_000),
				"dark_elixir": g.rng.Int64N(500_000),
			},
		}
		// One in five users has never been seen online.
		if g.rng.IntN(5) != 0 {
			rec["last_online"] = g.date(g.now.Add(-time.Duration(g.rng.IntN(45*24*60)) * time.Minute))
		}
		out[id.String()] = rec
	}
	return out
}

// attacks spreads counts across every analytics bucket.
func (g *Generator) attacks() int64 {
	switch g.rng.IntN(5) {
	case 0:
		return g.rng.Int64N(11)
	case 1:
		return 11 + g.rng.Int64N(40)
	case 2:
		return 51 + g.rng.Int64N(50)
	case 3:
		return 101 + g.rng.Int64N(400)
	default:
		return 501 + g.rng.Int64N(5000)
	}
}

// date renders t in one of the formats seen in the wild, occasionally
// malformed.
func (g *Generator) date(t time.Time) string {
	switch g.rng.IntN(10) {
	case 0:
		return "not-a-date"
	case 1, 2:
		return strconv.FormatInt(t.UnixMilli(), 10)
	case 3, 4:
		return t.Format(layoutUS)
	default:
		return t.UTC().Format(time.RFC3339)
	}
}

func (g *Generator) feedback(n int) map[string]map[string]string {
	out := make(map[string]map[string]string, n)
	for i := 0; i < n; i++ {
		at := g.now.Add(-time.Duration(g.rng.IntN(14*24*60)) * time.Minute)
		entry := map[string]string{
			"user_name": firstNames[g.rng.IntN(len(firstNames))],
			"device_id": fmt.Sprintf("device-%d", g.rng.IntN(n+1)),
			"feedback":  messages[g.rng.IntN(len(messages))],
			"timestamp": at.Format(layoutFeedback),
		}
		if g.rng.IntN(8) == 0 {
			entry["user_name"] = ""
		}
		out[fmt.Sprintf("fb-%05d", i)] = entry
	}
	return out
}
