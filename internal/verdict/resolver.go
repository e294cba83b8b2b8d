package verdict

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/wrenfield/ctxcore/internal/metrics"
	"github.com/wrenfield/ctxcore/internal/store"
)

// VerifierAgentID is the agent id that takes priority in the graph-edge
// layer when present on an edge; edges from any other (or no) agent are
// still honored on a second pass.
const VerifierAgentID = "ctxcore:verifier"

// FromGraph queries edges targeting implNodeID for supports/contradicts
// verdicts, preferring edges authored by VerifierAgentID. This is layer 1
// (most authoritative) of the three-layer detection: an explicit graph
// judgment always outranks anything parsed from free text.
func FromGraph(ctx context.Context, g store.GraphStore, implNodeID string) (Verdict, error) {
	edges, err := g.GetEdgesTouching(ctx, implNodeID)
	if err != nil {
		return Unknown, err
	}

	if v := scanEdgesForVerdict(edges, implNodeID, true); v != Unknown {
		return v, nil
	}
	return scanEdgesForVerdict(edges, implNodeID, false), nil
}

func scanEdgesForVerdict(edges []store.Edge, implNodeID string, verifierOnly bool) Verdict {
	for _, e := range edges {
		if e.TargetID != implNodeID {
			continue
		}
		if e.IsSuperseded() {
			continue
		}
		if verifierOnly && (e.AgentID == nil || *e.AgentID != VerifierAgentID) {
			continue
		}
		switch e.EdgeType {
		case "supports":
			return Supports
		case "contradicts":
			return Contradicts
		}
	}
	return Unknown
}

var verdictTagRe = regexp.MustCompile(`(?s)<verdict>\s*(.*?)\s*</verdict>`)
var rawVerdictRe = regexp.MustCompile(`"verdict"\s*:\s*"(supports|contradicts|pass|fail)"`)

type verdictJSON struct {
	Verdict    string  `json:"verdict"`
	Result     string  `json:"result"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
}

// FromStructuredText looks for a <verdict>{...}</verdict> JSON block, then
// falls back to a bare "verdict":"..." pattern. This is layer 2. Returns
// nil if no verdict marker is present at all; returns a Result with
// Unknown if a marker is present but its JSON doesn't parse.
func FromStructuredText(text string) *Result {
	if m := verdictTagRe.FindStringSubmatch(text); len(m) == 2 {
		return parseVerdictBlock(m[1])
	}

	if m := rawVerdictRe.FindStringSubmatch(text); len(m) == 2 {
		if v := mapVerdictString(m[1]); v != Unknown {
			return &Result{Verdict: v, Confidence: 0.8}
		}
	}

	return nil
}

func parseVerdictBlock(jsonStr string) *Result {
	var parsed verdictJSON
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		return &Result{Verdict: Unknown}
	}

	confidence := parsed.Confidence
	if confidence == 0 {
		confidence = 0.9
	}
	if confidence < 0 {
		confidence = 0
	} else if confidence > 1 {
		confidence = 1
	}

	for _, field := range []string{parsed.Verdict, parsed.Result} {
		if v := mapVerdictString(field); v != Unknown {
			return &Result{Verdict: v, Reason: parsed.Reason, Confidence: confidence}
		}
	}
	return &Result{Verdict: Unknown, Reason: parsed.Reason}
}

func mapVerdictString(s string) Verdict {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "supports", "pass":
		return Supports
	case "contradicts", "fail":
		return Contradicts
	default:
		return Unknown
	}
}

// FromText is the last-resort keyword scanner: layer 3. It checks explicit
// verdict markers first, then edge-type mentions, then a bare keyword scan
// where, if both pass and fail keywords appear, whichever occurs later in
// the text wins (later judgments supersede earlier ones in verifier output).
func FromText(text string) Verdict {
	lower := strings.ToLower(text)

	if strings.Contains(lower, "verification result: **pass**") ||
		strings.Contains(lower, "verdict: pass") ||
		strings.Contains(lower, "verdict: **pass**") {
		return Supports
	}
	if strings.Contains(lower, "verification result: **fail**") ||
		strings.Contains(lower, "verdict: fail") ||
		strings.Contains(lower, "verdict: **fail**") {
		return Contradicts
	}

	if strings.Contains(lower, `edge_type: "supports"`) || strings.Contains(lower, "edge_type: supports") {
		return Supports
	}
	if strings.Contains(lower, `edge_type: "contradicts"`) || strings.Contains(lower, "edge_type: contradicts") {
		return Contradicts
	}

	lastPass, lastFail := -1, -1
	for _, kw := range []string{"pass", "passes", "supports"} {
		if idx := strings.LastIndex(lower, kw); idx > lastPass {
			lastPass = idx
		}
	}
	for _, kw := range []string{"fail", "fails", "contradicts"} {
		if idx := strings.LastIndex(lower, kw); idx > lastFail {
			lastFail = idx
		}
	}

	switch {
	case lastPass >= 0 && lastFail >= 0:
		if lastFail > lastPass {
			return Contradicts
		}
		return Supports
	case lastPass >= 0:
		return Supports
	case lastFail >= 0:
		return Contradicts
	default:
		return Unknown
	}
}

// Determine applies the three-layer detection in priority order and always
// returns a non-nil Result, Unknown/zero-confidence if every layer fails.
func Determine(ctx context.Context, g store.GraphStore, implNodeID, verifierOutput string) (*Result, error) {
	m := metrics.Default()

	if g != nil && implNodeID != "" {
		v, err := FromGraph(ctx, g, implNodeID)
		if err != nil {
			m.RecordStoreError(ctx, "get_edges_touching")
			return nil, err
		}
		if v != Unknown {
			m.RecordVerdict(ctx, "graph", string(v))
			return &Result{Verdict: v, Reason: "Verdict from graph edge", Confidence: 1.0}, nil
		}
	}

	if r := FromStructuredText(verifierOutput); r != nil && r.Verdict != Unknown {
		m.RecordVerdict(ctx, "structured", string(r.Verdict))
		return r, nil
	}

	if v := FromText(verifierOutput); v != Unknown {
		m.RecordVerdict(ctx, "text", string(v))
		return &Result{Verdict: v, Reason: "Verdict inferred from verifier output text (keyword scan)", Confidence: 0.6}, nil
	}

	m.RecordVerdict(ctx, "none", string(Unknown))
	return &Result{Verdict: Unknown}, nil
}
