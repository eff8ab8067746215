package groupapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"groupwatch/internal/domain/entity"
)

// groupResponse mirrors GET /v1/groups/{id}. Owner stays raw so a missing key
// can be told apart from an explicit null.
type groupResponse struct {
	ID                 json.Number     `json:"id"`
	Name               string          `json:"name"`
	Description        string          `json:"description"`
	Owner              json.RawMessage `json:"owner"`
	PublicEntryAllowed bool            `json:"publicEntryAllowed"`
	MemberCount        int64           `json:"memberCount"`
}

// decodeGroup parses a group body. Only an explicit "owner": null yields a
// record without owner; an absent key is malformed.
func decodeGroup(body []byte) (*entity.GroupRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var resp groupResponse
	if err := dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(resp.Owner) == 0 {
		return nil, fmt.Errorf("%w: owner field missing", ErrMalformedResponse)
	}

	record := &entity.GroupRecord{
		Name:               resp.Name,
		Description:        resp.Description,
		PublicEntryAllowed: resp.PublicEntryAllowed,
		MemberCount:        resp.MemberCount,
	}
	if id, err := entity.ParseGroupID(resp.ID.String()); err == nil {
		record.ID = id
	}

	if !bytes.Equal(bytes.TrimSpace(resp.Owner), []byte("null")) {
		var owner entity.Owner
		if err := json.Unmarshal(resp.Owner, &owner); err != nil {
			return nil, fmt.Errorf("%w: owner: %v", ErrMalformedResponse, err)
		}
		record.Owner = &owner
	}
	return record, nil
}

// listKeys are the object keys under which a search page may carry its results.
var listKeys = []string{"data", "groups", "results", "items"}

// idKeys are the element keys that may carry a group id.
var idKeys = []string{"id", "groupId", "group_id"}

// decodeSearchPage normalizes a discovery page into group ids. It accepts a
// top-level array or an object holding the array under one of listKeys.
// Elements may be objects keyed by one of idKeys or bare ids, given as
// numbers or numeric strings. Unusable elements are dropped.
func decodeSearchPage(body []byte) ([]entity.GroupID, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedResponse)
	}

	var elems []json.RawMessage
	switch body[0] {
	case '[':
		if err := json.Unmarshal(body, &elems); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(body, &obj); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		found := false
		for _, key := range listKeys {
			raw, ok := obj[key]
			if !ok {
				continue
			}
			if err := json.Unmarshal(raw, &elems); err != nil {
				continue
			}
			found = true
			break
		}
		if !found {
			return nil, fmt.Errorf("%w: no result list", ErrMalformedResponse)
		}
	default:
		return nil, fmt.Errorf("%w: unexpected JSON value", ErrMalformedResponse)
	}

	ids := make([]entity.GroupID, 0, len(elems))
	for _, elem := range elems {
		if id, ok := elementID(elem); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func elementID(raw json.RawMessage) (entity.GroupID, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", false
	}
	if raw[0] != '{' {
		return scalarID(raw)
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", false
	}
	for _, key := range idKeys {
		if v, ok := obj[key]; ok {
			if id, ok := scalarID(v); ok {
				return id, true
			}
		}
	}
	return "", false
}

// scalarID accepts a JSON integer or a string of digits.
func scalarID(raw json.RawMessage) (entity.GroupID, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		id, err := entity.ParseGroupID(strings.TrimSpace(s))
		return id, err == nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", false
	}
	v, err := strconv.ParseInt(n.String(), 10, 64)
	if err != nil || v <= 0 {
		return "", false
	}
	return entity.GroupID(strconv.FormatInt(v, 10)), true
}
