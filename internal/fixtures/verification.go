package fixtures

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/okian/cocstats/internal/domain/leaderboard"
	"github.com/okian/cocstats/internal/domain/model"
	"github.com/okian/cocstats/pkg/logger"
)

// ErrMismatch is returned when the service disagrees with the local ranking.
var ErrMismatch = errors.New("leaderboard mismatch")

// Expected ranks the users of a fixture locally, decoding them exactly as
// the service does.
func Expected(fixture []byte, key leaderboard.Key, top int) []leaderboard.Entry {
	users, _ := model.DecodeUsers([]byte(gjson.GetBytes(fixture, model.CollectionUsers).Raw))
	return leaderboard.Top(users, key, top)
}

// Compare checks got against want row by row.
func Compare(want []leaderboard.Entry, got []Entry) error {
	if len(want) != len(got) {
		return fmt.Errorf("%w: expected %d entries, got %d", ErrMismatch, len(want), len(got))
	}
	for i := range want {
		if want[i].User.DeviceID != got[i].User.DeviceID || want[i].Score != got[i].Score {
			return fmt.Errorf("%w: rank %d: expected %s (%d), got %s (%d)", ErrMismatch, i+1,
				want[i].User.DeviceID, want[i].Score, got[i].User.DeviceID, got[i].Score)
		}
	}
	return nil
}

// fetchBoard reads one leaderboard from the service.
func fetchBoard(ctx context.Context, client *http.Client, baseURL string, key leaderboard.Key, top int) ([]Entry, error) {
	url := baseURL + "/api/leaderboard?by=" + string(key) + "&limit=" + strconv.Itoa(top)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get %s: status %d: %s", url, resp.StatusCode, body)
	}
	var board Board
	if err := json.Unmarshal(body, &board); err != nil {
		return nil, fmt.Errorf("decode leaderboard: %w", err)
	}
	return board.Entries, nil
}

// Verify compares both leaderboards of the service with the fixture.
func Verify(ctx context.Context, cfg *Config, fixture []byte) error {
	client := &http.Client{Timeout: cfg.Timeout}
	log := logger.Get().Named("fixtures")

	for _, key := range []leaderboard.Key{leaderboard.KeyAttacks, leaderboard.KeyLoot} {
		got, err := fetchBoard(ctx, client, cfg.BaseURL, key, cfg.Top)
		if err != nil {
			return err
		}
		want := Expected(fixture, key, cfg.Top)
		if cfg.Verbose {
			for i := range got {
				log.Info(ctx, "leaderboard entry",
					logger.String("board", string(key)),
					logger.Int("rank", got[i].Rank),
					logger.String("name", got[i].Name),
					logger.Int64("score", got[i].Score),
				)
			}
		}
		if err := Compare(want, got); err != nil {
			return fmt.Errorf("%s board: %w", key, err)
		}
		log.Info(ctx, "leaderboard verified", logger.String("board", string(key)), logger.Int("entries", len(got)))
	}
	return nil
}
