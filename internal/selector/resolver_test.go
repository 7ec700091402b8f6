package selector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/adyen/marketprobe/internal/browser/testutil"
)

func TestResolver_Resolve(t *testing.T) {
	tests := []struct {
		name       string
		candidates Candidates
		visible    map[string]bool
		wantFound  bool
		wantDesc   string
		wantIndex  int
		wantProbes []string
	}{
		{
			name:       "first candidate wins",
			candidates: Candidates{"#a", "#b"},
			visible:    map[string]bool{"#a": true, "#b": true},
			wantFound:  true,
			wantDesc:   "#a",
			wantIndex:  0,
			wantProbes: []string{"probe:#a"},
		},
		{
			name:       "falls back in declaration order",
			candidates: Candidates{"#a", "#b", "#c"},
			visible:    map[string]bool{"#a": false, "#b": true, "#c": true},
			wantFound:  true,
			wantDesc:   "#b",
			wantIndex:  1,
			wantProbes: []string{"probe:#a", "probe:#b"},
		},
		{
			name:       "duplicates are harmless",
			candidates: Candidates{"#a", "#a", "#b"},
			visible:    map[string]bool{"#b": true},
			wantFound:  true,
			wantDesc:   "#b",
			wantIndex:  2,
			wantProbes: []string{"probe:#a", "probe:#a", "probe:#b"},
		},
		{
			name:       "nothing matches",
			candidates: Candidates{"#a", "#b"},
			visible:    map[string]bool{},
			wantFound:  false,
			wantProbes: []string{"probe:#a", "probe:#b"},
		},
		{
			name:       "empty list",
			candidates: nil,
			wantFound:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := testutil.NewFakePage("https://www.ebay.com/itm/1")
			for desc, visible := range tt.visible {
				page.Set(desc, &testutil.FakeElement{Visible: visible})
			}

			r := NewResolver(zaptest.NewLogger(t))
			match, ok := r.Resolve(context.Background(), page, tt.candidates, 10*time.Millisecond)

			require.Equal(t, tt.wantFound, ok)
			if tt.wantFound {
				assert.Equal(t, tt.wantDesc, match.Descriptor)
				assert.Equal(t, tt.wantIndex, match.Index)
				assert.NotNil(t, match.Element)
			}
			if tt.wantProbes == nil {
				assert.Empty(t, page.CallLog())
			} else {
				assert.Equal(t, tt.wantProbes, page.CallLog())
			}
		})
	}
}

func TestResolver_ResolveNeverClicks(t *testing.T) {
	page := testutil.NewFakePage("https://www.ebay.com/")
	page.Set("#a", &testutil.FakeElement{Visible: true})

	_, ok := NewResolver(nil).Resolve(context.Background(), page, Candidates{"#a"}, time.Millisecond)
	require.True(t, ok)

	for _, call := range page.CallLog() {
		assert.NotContains(t, call, "click:")
	}
}

func TestResolver_ResolveCancelled(t *testing.T) {
	page := testutil.NewFakePage("https://www.ebay.com/")
	page.Set("#a", &testutil.FakeElement{Visible: true})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := NewResolver(nil).Resolve(ctx, page, Candidates{"#a"}, time.Second)
	assert.False(t, ok)
	assert.Empty(t, page.CallLog())
}

func TestResolver_ResolveBoundedByCandidateTimeouts(t *testing.T) {
	page := testutil.NewFakePage("https://www.ebay.com/")
	candidates := Candidates{"#a", "#b", "#c"}
	per := 20 * time.Millisecond

	start := time.Now()
	_, ok := NewResolver(nil).Resolve(context.Background(), page, candidates, per)
	elapsed := time.Since(start)

	assert.False(t, ok)
	assert.LessOrEqual(t, elapsed, time.Duration(len(candidates))*per+100*time.Millisecond)
}

func TestSettle(t *testing.T) {
	assert.True(t, Settle(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, Settle(ctx, time.Hour))
}
