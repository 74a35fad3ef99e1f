package icewire

import (
	"strings"

	"github.com/icewire-project/icewire/internal/wire"
)

const autoResponseMarker = "[Auto-Response]"

// SendIM sends an instant message to uid, converting body from HTML to
// the service's pseudo-HTML (spec.md §4.C7 "IM channel").
func (s *Session) SendIM(uid uint32, body string) error {
	encoded := ToPseudoHTML(body)
	w := wire.NewWriter(4 + len(encoded))
	w.U32(uid)
	w.Raw([]byte(encoded))
	return s.send(OpIMOut, w.Bytes())
}

// handleIMIn decodes IM_IN: {UID, body}. Bodies containing the literal
// "[Auto-Response]" marker set an auto-response flag and the marker is
// replaced with empty tags before the body is delivered to the callback.
func (s *Session) handleIMIn(body []byte) error {
	r := wire.NewReader(body)
	from, err := r.U32()
	if err != nil {
		return protocolErr("im.in", err)
	}
	rest := body[r.Offset():]
	text := SalvageUTF8(rest)

	autoResponse := strings.Contains(text, autoResponseMarker)
	if autoResponse {
		text = strings.ReplaceAll(text, autoResponseMarker, "<></>")
	}

	decoded := FromPseudoHTML(text)
	if s.cb != nil && s.cb.OnIM != nil {
		s.cb.OnIM(from, decoded)
	}
	return nil
}

// SearchField selects which field DO_SEARCH queries against.
type SearchField string

const (
	SearchByEmail    SearchField = "email"
	SearchByNickname SearchField = "nickname"
)

// Search sends DO_SEARCH with a single "k=v" body.
func (s *Session) Search(field SearchField, value string) error {
	body := string(field) + "=" + value
	return s.send(OpSearchQuery, []byte(body))
}

// BuddyRecord is one decoded SEARCH_RESPONSE entry.
type BuddyRecord struct {
	UID      uint32
	Nickname string
	Email    string
}

// parseSearchResponse decodes the buddy-separator/field-separator encoded
// table SEARCH_RESPONSE carries (spec.md §6 separators: record sep 0xC8,
// field sep '\n').
func parseSearchResponse(body []byte) []BuddyRecord {
	var out []BuddyRecord
	for _, rec := range splitBytes(body, 0xC8) {
		fields := strings.Split(string(rec), "\n")
		var br BuddyRecord
		for _, f := range fields {
			kv := strings.SplitN(f, "=", 2)
			if len(kv) != 2 {
				continue
			}
			switch kv[0] {
			case "nickname":
				br.Nickname = kv[1]
			case "email":
				br.Email = kv[1]
			}
		}
		out = append(out, br)
	}
	return out
}

func splitBytes(b []byte, sep byte) [][]byte {
	var out [][]byte
	start := 0
	for i, c := range b {
		if c == sep {
			out = append(out, b[start:i])
			start = i + 1
		}
	}
	if start < len(b) {
		out = append(out, b[start:])
	}
	return out
}

// AddBuddy sends ADD_BUDDY for uid.
func (s *Session) AddBuddy(uid uint32) error {
	w := wire.NewWriter(4)
	w.U32(uid)
	return s.send(OpAddBuddy, w.Bytes())
}

// RemoveBuddy sends REMOVE_BUDDY for uid.
func (s *Session) RemoveBuddy(uid uint32) error {
	w := wire.NewWriter(4)
	w.U32(uid)
	return s.send(OpRemoveBuddy, w.Bytes())
}

// BlockBuddy sends BLOCK_BUDDY for uid.
func (s *Session) BlockBuddy(uid uint32) error {
	w := wire.NewWriter(4)
	w.U32(uid)
	return s.send(OpBlockBuddy, w.Bytes())
}

// UnblockBuddy sends UNBLOCK_BUDDY for uid.
func (s *Session) UnblockBuddy(uid uint32) error {
	w := wire.NewWriter(4)
	w.U32(uid)
	return s.send(OpUnblockBuddy, w.Bytes())
}

// ChangeStatus sends CHANGE_STATUS.
func (s *Session) ChangeStatus(p Presence) error {
	w := wire.NewWriter(1)
	w.Raw([]byte{byte(p)})
	return s.send(OpChangeStatus, w.Bytes())
}
