package theme_test

import (
	"strings"
	"testing"

	"cardadapter/internal/ui/theme"
)

func TestCheckMarksOutcome(t *testing.T) {
	t.Parallel()
	if got := theme.Check(true, "checksum"); !strings.Contains(got, "✓") || !strings.HasSuffix(got, " checksum") {
		t.Fatalf("unexpected pass render %q", got)
	}
	if got := theme.Check(false, "binary"); !strings.Contains(got, "✗") || !strings.HasSuffix(got, " binary") {
		t.Fatalf("unexpected fail render %q", got)
	}
}
