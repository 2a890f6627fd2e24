package composer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purish/purish/rules"
	"github.com/purish/purish/rules/shellrules"
	"github.com/purish/purish/shellast"
	"github.com/purish/purish/source"
)

func edit(ruleID string, start, end int, replacement string) rules.Edit {
	return rules.Edit{Span: source.NewSpan(start, end), ReplacementText: replacement, Kind: rules.EditReplace, RuleID: ruleID}
}

func TestComposeAppliesNonOverlappingEditsRightToLeft(t *testing.T) {
	text := "aaa bbb ccc"
	src := source.New("t", []byte(text))
	e1 := edit("R1", 4, 7, "BBB")
	e2 := edit("R2", 8, 11, "CCC")
	findings := []rules.Finding{
		{RuleID: "R1", Category: rules.CategoryShellcheck, Span: e1.Span, Fix: &e1},
		{RuleID: "R2", Category: rules.CategoryShellcheck, Span: e2.Span, Fix: &e2},
	}
	result := Compose(src, findings, map[string]bool{"R1": true, "R2": true})
	assert.Equal(t, "aaa BBB CCC", string(result.Text))
	assert.Equal(t, []string{"R1", "R2"}, result.Applied)
	assert.Empty(t, result.Conflicts)
}

func TestComposeResolvesOverlapByCategoryPriority(t *testing.T) {
	text := "rm $TARGET"
	src := source.New("t", []byte(text))
	secEdit := edit("SEC001", 3, 10, `"$TARGET"`)
	idemEdit := edit("IDEM002", 0, 2, "rm -f")
	findings := []rules.Finding{
		{RuleID: "SEC001", Category: rules.CategorySecurity, Span: secEdit.Span, Fix: &secEdit},
		{RuleID: "IDEM002", Category: rules.CategoryIdempotency, Span: idemEdit.Span, Fix: &idemEdit},
	}
	result := Compose(src, findings, map[string]bool{"SEC001": true, "IDEM002": true})
	assert.Equal(t, []string{"IDEM002", "SEC001"}, result.Applied)
	assert.Empty(t, result.Conflicts)

	overlapping := edit("SHELLCHECK-X", 2, 9, "clobbered")
	findings2 := []rules.Finding{
		{RuleID: "SEC001", Category: rules.CategorySecurity, Span: secEdit.Span, Fix: &secEdit},
		{RuleID: "SHELLCHECK-X", Category: rules.CategoryShellcheck, Span: overlapping.Span, Fix: &overlapping},
	}
	result2 := Compose(src, findings2, map[string]bool{"SEC001": true, "SHELLCHECK-X": true})
	require.Len(t, result2.Conflicts, 1)
	assert.Equal(t, "SEC001", result2.Conflicts[0].KeptRule)
	assert.Equal(t, "SHELLCHECK-X", result2.Conflicts[0].Dropped)
	assert.Equal(t, []string{"SEC001"}, result2.Applied)
	assert.Equal(t, `rm "$TARGET"`, string(result2.Text))
}

func TestComposeDropsEditsNotInAllowlist(t *testing.T) {
	text := "aaa bbb"
	src := source.New("t", []byte(text))
	e1 := edit("R1", 4, 7, "BBB")
	findings := []rules.Finding{{RuleID: "R1", Category: rules.CategoryShellcheck, Span: e1.Span, Fix: &e1}}
	result := Compose(src, findings, map[string]bool{})
	assert.Equal(t, text, string(result.Text))
	assert.Empty(t, result.Applied)
}

func TestComposeIgnoresFindingsWithoutFix(t *testing.T) {
	text := "cd /tmp\n"
	src := source.New("t", []byte(text))
	findings := []rules.Finding{{RuleID: "SC2164", Category: rules.CategoryShellcheck, Span: source.NewSpan(0, 2)}}
	result := Compose(src, findings, map[string]bool{"SC2164": true})
	assert.Equal(t, text, string(result.Text))
	assert.Empty(t, result.Applied)
}

func TestComposeIDEM001AndSC2086ComposeCleanly(t *testing.T) {
	text := "mkdir $DIR\n"
	reg := rules.NewRegistry()
	shellrules.Register(reg)
	srcForParse := source.New("script.sh", []byte(text))
	// shellrules.Register wires 14 rules; only run the two this test cares
	// about so the composed output is deterministic regardless of the rest.
	filtered := rules.NewRegistry()
	for _, r := range reg.Rules() {
		id := r.Metadata().ID
		if id == "IDEM001" || id == "SC2086" {
			filtered.MustRegister(r)
		}
	}
	engine := rules.NewEngine(filtered)

	prog, _ := shellast.Parse(srcForParse)
	in := rules.Input{Source: srcForParse, Shell: prog}
	out := engine.Run(in, rules.Options{})
	require.Len(t, out.Findings, 2)

	allowed := SafeAllowlist(filtered)
	result := Compose(srcForParse, out.Findings, allowed)
	assert.Equal(t, "mkdir -p \"${DIR}\"\n", string(result.Text))
	assert.Empty(t, result.Conflicts)
}
