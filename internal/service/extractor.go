package service

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"listingfilter/internal/config"
	"listingfilter/internal/utils"
)

// firstBracketGroup matches the first [...] in a reply, across lines
var firstBracketGroup = regexp.MustCompile(`(?s)\[(.*?)\]`)

// IDExtractor recovers listing ids from a model reply.
// On a malformed reply it returns an empty, non-nil slice together with a *MalformedReplyError.
type IDExtractor interface {
	Extract(reply string) ([]int64, error)
}

// NewExtractor returns the extractor for a reply format
func NewExtractor(replyFormat string) IDExtractor {
	if replyFormat == config.ReplyFormatJSON {
		return JSONExtractor{}
	}
	return BracketExtractor{}
}

// BracketExtractor reads ids from the first bracketed, comma-separated group of a free-text reply
type BracketExtractor struct{}

func (BracketExtractor) Extract(reply string) ([]int64, error) {
	return ExtractIDs(reply)
}

// ExtractIDs parses the first [...] group of reply as comma-separated integers.
// Later groups are ignored. Pieces that are not integers are skipped.
func ExtractIDs(reply string) ([]int64, error) {
	m := firstBracketGroup.FindStringSubmatch(reply)
	if m == nil {
		return []int64{}, &MalformedReplyError{Reply: reply, Reason: "no bracketed id list"}
	}
	if strings.TrimSpace(m[1]) == "" {
		return []int64{}, nil
	}
	return parseIDPieces(reply, strings.Split(m[1], ","))
}

// JSONExtractor reads ids from a structured reply: {"ids": [...]} or a bare array.
// Replies that are not JSON fall back to the bracket scan.
type JSONExtractor struct{}

func (JSONExtractor) Extract(reply string) ([]int64, error) {
	var obj struct {
		IDs []json.RawMessage `json:"ids"`
	}
	if err := utils.ParseAIJSON(reply, &obj); err == nil && obj.IDs != nil {
		return rawIDs(reply, obj.IDs)
	}

	var arr []json.RawMessage
	if err := utils.ParseAIJSON(reply, &arr); err == nil {
		return rawIDs(reply, arr)
	}

	return ExtractIDs(reply)
}

func rawIDs(reply string, raw []json.RawMessage) ([]int64, error) {
	if len(raw) == 0 {
		return []int64{}, nil
	}
	pieces := make([]string, len(raw))
	for i, r := range raw {
		pieces[i] = string(r)
	}
	return parseIDPieces(reply, pieces)
}

// parseIDPieces converts each piece to an id, skipping the ones that do not parse.
// If none parse the reply is malformed.
func parseIDPieces(reply string, pieces []string) ([]int64, error) {
	ids := make([]int64, 0, len(pieces))
	for _, p := range pieces {
		p = strings.Trim(strings.TrimSpace(p), `"'`)
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return ids, &MalformedReplyError{Reply: reply, Reason: "no integer ids in list"}
	}
	return ids, nil
}
