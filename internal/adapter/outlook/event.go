// Package outlook converts Microsoft Graph events, as relayed by the
// backend's Microsoft endpoints, into core events.
package outlook

import (
	"encoding/json"
	"errors"
	"fmt"

	jsonserialization "github.com/microsoft/kiota-serialization-json-go"
	"github.com/microsoftgraph/msgraph-sdk-go/models"

	"github.com/theakshaypant/calmerge/internal/core"
	"github.com/theakshaypant/calmerge/internal/util"
)

// ErrCancelled marks an event Graph reports as cancelled.
var ErrCancelled = errors.New("outlook event is cancelled")

// IsNative reports whether a relayed item is a Graph event resource.
func IsNative(fields map[string]json.RawMessage) bool {
	if _, ok := fields["subject"]; ok {
		return true
	}
	if raw, ok := fields["@odata.type"]; ok {
		var t string
		return json.Unmarshal(raw, &t) == nil && t == "#microsoft.graph.event"
	}
	return false
}

// Decode parses one Graph event with the SDK's own models.
func Decode(raw []byte) (core.Event, error) {
	node, err := jsonserialization.NewJsonParseNode(raw)
	if err != nil {
		return core.Event{}, fmt.Errorf("parse graph event: %w", err)
	}
	v, err := node.GetObjectValue(models.CreateEventFromDiscriminatorValue)
	if err != nil {
		return core.Event{}, fmt.Errorf("decode graph event: %w", err)
	}
	item, ok := v.(models.Eventable)
	if !ok || item == nil {
		return core.Event{}, fmt.Errorf("decode graph event: unexpected %T", v)
	}
	if derefBool(item.GetIsCancelled()) {
		return core.Event{}, ErrCancelled
	}
	return parseGraphEvent(item), nil
}

// parseGraphEvent converts a Graph SDK event into our unified core.Event.
func parseGraphEvent(item models.Eventable) core.Event {
	isInvite, status := parseInvite(item)

	e := core.Event{
		ID:           derefStr(item.GetId()),
		Title:        derefStr(item.GetSubject()),
		Description:  description(item),
		Start:        parseSDKDateTime(item.GetStart()),
		End:          parseSDKDateTime(item.GetEnd()),
		IsAllDay:     derefBool(item.GetIsAllDay()),
		Source:       core.ProviderMicrosoft,
		IsInvite:     isInvite,
		InviteStatus: status,
		URL:          derefStr(item.GetWebLink()),
	}

	if loc := item.GetLocation(); loc != nil {
		e.Location = derefStr(loc.GetDisplayName())
	}
	if om := item.GetOnlineMeeting(); om != nil {
		e.MeetingLink = derefStr(om.GetJoinUrl())
	}
	if created := item.GetCreatedDateTime(); created != nil {
		e.CreatedAt = *created
	}
	if uid := derefStr(item.GetICalUId()); uid != "" {
		e.Metadata = map[string]string{"ical_uid": uid}
	}

	return e
}

// description returns the body as plain text; Graph bodies are usually HTML.
func description(item models.Eventable) string {
	body := item.GetBody()
	if body == nil {
		return ""
	}
	content := derefStr(body.GetContent())
	if ct := body.GetContentType(); ct != nil && *ct == models.HTML_BODYTYPE {
		return util.HTMLToText(content)
	}
	return content
}

// parseInvite maps the user's response onto invite state. Meetings the
// user organizes are not invites; tentative answers still count as pending.
func parseInvite(item models.Eventable) (bool, core.InviteStatus) {
	if derefBool(item.GetIsOrganizer()) {
		return false, ""
	}
	rs := item.GetResponseStatus()
	if rs == nil || rs.GetResponse() == nil {
		return false, ""
	}
	switch *rs.GetResponse() {
	case models.ACCEPTED_RESPONSETYPE:
		return true, core.InviteAccepted
	case models.DECLINED_RESPONSETYPE:
		return true, core.InviteDeclined
	case models.TENTATIVELYACCEPTED_RESPONSETYPE, models.NOTRESPONDED_RESPONSETYPE:
		return true, core.InvitePending
	default:
		return false, ""
	}
}
