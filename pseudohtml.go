package icewire

import (
	"regexp"
	"strconv"
	"strings"
)

// fontColorRE matches outbound <font color="#RRGGBB">.
var fontColorRE = regexp.MustCompile(`(?i)<font color="#([0-9A-F]{6})">`)

// pfontColorRE matches inbound <pfont color="#NBGR">.
var pfontColorRE = regexp.MustCompile(`(?i)<pfont color="#([0-9A-F]{6})">`)

var fontSizeRE = regexp.MustCompile(`(?i)<font size="(\d+)">`)
var pfontSizeRE = regexp.MustCompile(`(?i)<pfont-size="(\d+)">`)

// offlineLeaderRE matches the "<<(date time zone)>>" marker the service
// prepends to messages delivered while the recipient was offline.
var offlineLeaderRE = regexp.MustCompile(`^<<\(([^)]*)\)>>`)

var htmlEntityDecodeReplacer = strings.NewReplacer(
	"&lt;", "<", "&gt;", ">", "&amp;", "&", "&quot;", `"`,
)

// swapColorChannels swaps the R and B bytes of a 6-hex-digit RGB string,
// the transform the service's color encoding applies in both directions.
func swapColorChannels(hex string) string {
	if len(hex) != 6 {
		return hex
	}
	return hex[4:6] + hex[2:4] + hex[0:2]
}

// mapOutboundFontSize maps an HTML font size (1-4+) to the service's
// pseudo-HTML size value, per §6: size 1-2 -> "8", size 3 -> "10",
// size >= 4 -> "12".
func mapOutboundFontSize(size int) string {
	switch {
	case size <= 2:
		return "8"
	case size == 3:
		return "10"
	default:
		return "12"
	}
}

// mapInboundFontSize is the approximate inverse used when converting a
// pseudo-HTML size back to an HTML size attribute.
func mapInboundFontSize(size string) string {
	switch size {
	case "8":
		return "2"
	case "10":
		return "3"
	default:
		return "4"
	}
}

// hasPfontTag reports whether s already carries a <pfont ...> tag.
func hasPfontTag(s string) bool {
	return strings.Contains(strings.ToLower(s), "<pfont")
}

// ToPseudoHTML converts an outbound HTML message body into the service's
// pseudo-HTML dialect: font colors get their R/B channels swapped and the
// tag renamed <pfont>, font sizes are bucketed into {8,10,12}, generic
// tags are prefixed with "p", and entities are decoded. A message with no
// <pfont> tag at all is wrapped — the service rejects unformatted text.
func ToPseudoHTML(s string) string {
	out := htmlEntityDecodeReplacer.Replace(s)
	out = fontColorRE.ReplaceAllStringFunc(out, func(m string) string {
		sub := fontColorRE.FindStringSubmatch(m)
		return `<pfont color="#` + swapColorChannels(sub[1]) + `">`
	})
	out = fontSizeRE.ReplaceAllStringFunc(out, func(m string) string {
		sub := fontSizeRE.FindStringSubmatch(m)
		n, _ := strconv.Atoi(sub[1])
		return `<pfont-size="` + mapOutboundFontSize(n) + `">`
	})
	out = genericizeTags(out, "p")

	if !hasPfontTag(out) {
		out = `<pfont color="#0"><pfont-size="10">` + out + `</pfont></pfont>`
	}
	return out
}

// genericTagRE matches any HTML tag (opening or closing) not already
// recognized by the more specific color/size rules above, so it can be
// given the service's "p" prefix symmetrically.
var genericTagRE = regexp.MustCompile(`<(/?)([a-zA-Z][a-zA-Z0-9]*)((?:\s+[^<>]*)?)>`)

func genericizeTags(s, prefix string) string {
	return genericTagRE.ReplaceAllStringFunc(s, func(m string) string {
		sub := genericTagRE.FindStringSubmatch(m)
		closing, tag, attrs := sub[1], sub[2], sub[3]
		lower := strings.ToLower(tag)
		if lower == "pfont" {
			return m // opening tag already handled by the color/size passes
		}
		if lower == "font" {
			// Only the closing tag reaches here (opening <font ...> was
			// already rewritten to <pfont...> above); rename it to match.
			return "<" + closing + "pfont" + attrs + ">"
		}
		return "<" + closing + prefix + tag + attrs + ">"
	})
}

// FromPseudoHTML converts an inbound message body from the service's
// pseudo-HTML back into HTML, and extracts any offline-message leader
// into a "[Sent On: ...]" prefix.
func FromPseudoHTML(s string) string {
	leader := ""
	if m := offlineLeaderRE.FindStringSubmatch(s); m != nil {
		leader = "[Sent On: " + m[1] + "] "
		s = offlineLeaderRE.ReplaceAllString(s, "")
	}

	out := pfontColorRE.ReplaceAllStringFunc(s, func(m string) string {
		sub := pfontColorRE.FindStringSubmatch(m)
		return `<font color="#` + swapColorChannels(sub[1]) + `">`
	})
	out = pfontSizeRE.ReplaceAllStringFunc(out, func(m string) string {
		sub := pfontSizeRE.FindStringSubmatch(m)
		return `<font size="` + mapInboundFontSize(sub[1]) + `">`
	})
	out = degenericizeTags(out, "p")
	return leader + out
}

var genericPTagRE = regexp.MustCompile(`<(/?)p([a-zA-Z][a-zA-Z0-9]*)((?:\s+[^<>]*)?)>`)

func degenericizeTags(s, prefix string) string {
	_ = prefix
	return genericPTagRE.ReplaceAllStringFunc(s, func(m string) string {
		sub := genericPTagRE.FindStringSubmatch(m)
		closing, tag, attrs := sub[1], sub[2], sub[3]
		// Opening <pfont ...> tags are already rewritten to <font ...> by
		// the color/size passes above, so only the closing </pfont> (and
		// any other generic <pXxx> tag) reaches here.
		return "<" + closing + tag + attrs + ">"
	})
}
