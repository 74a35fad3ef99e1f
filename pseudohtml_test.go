package icewire

import (
	"strings"
	"testing"
)

func TestSwapColorChannels(t *testing.T) {
	if got := swapColorChannels("FF00AA"); got != "AA00FF" {
		t.Fatalf("swapColorChannels = %q; want %q", got, "AA00FF")
	}
}

func TestToPseudoHTMLColorAndSize(t *testing.T) {
	in := `<font color="#FF00AA"><font size="3">hi</font></font>`
	out := ToPseudoHTML(in)
	if !strings.Contains(out, `<pfont color="#AA00FF">`) {
		t.Fatalf("missing swapped color in %q", out)
	}
	if !strings.Contains(out, `<pfont-size="10">`) {
		t.Fatalf("missing mapped size in %q", out)
	}
}

func TestToPseudoHTMLWrapsUnformatted(t *testing.T) {
	out := ToPseudoHTML("just text")
	if !hasPfontTag(out) {
		t.Fatalf("unformatted text not wrapped in <pfont>: %q", out)
	}
}

func TestRoundTripSubset(t *testing.T) {
	in := `<font color="#112233"><b>bold</b></font>`
	pseudo := ToPseudoHTML(in)
	back := FromPseudoHTML(pseudo)
	if !strings.Contains(back, `<font color="#112233">`) {
		t.Fatalf("color did not round-trip: %q -> %q -> %q", in, pseudo, back)
	}
	if !strings.Contains(back, "<b>bold</b>") {
		t.Fatalf("<b> tag did not round-trip: %q -> %q -> %q", in, pseudo, back)
	}
}

func TestFromPseudoHTMLOfflineLeader(t *testing.T) {
	out := FromPseudoHTML("<<(2005-01-01 12:00 PST)>>hello")
	if !strings.HasPrefix(out, "[Sent On: 2005-01-01 12:00 PST] ") {
		t.Fatalf("offline leader not converted: %q", out)
	}
	if !strings.HasSuffix(out, "hello") {
		t.Fatalf("body lost: %q", out)
	}
}
