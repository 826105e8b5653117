package transport

import (
	"fmt"
	"strconv"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/zde37/ringlookup/internal/chord"
	"github.com/zde37/ringlookup/pkg/ring"
)

// Wire field names. Ids and keys travel as decimal strings so that wide
// identifier spaces survive the float64 number encoding of structpb.
const (
	fieldKind      = "kind"
	fieldInitiator = "initiator"
	fieldSeq       = "seq"
	fieldKey       = "key"
	fieldPath      = "path"
	fieldFrom      = "from"
)

// EncodeMessage converts a chord message to its wire form.
func EncodeMessage(msg chord.Message) (*structpb.Struct, error) {
	fields := map[string]any{fieldKind: msg.Kind()}

	switch m := msg.(type) {
	case chord.RouteRequest:
		putLookup(fields, m.Lookup)
	case chord.Reply:
		putLookup(fields, m.Lookup)
	case chord.Done:
		fields[fieldFrom] = int(m.From)
	default:
		return nil, fmt.Errorf("cannot encode message %T", msg)
	}

	return structpb.NewStruct(fields)
}

func putLookup(fields map[string]any, l chord.LookupMessage) {
	path := make([]any, len(l.Path))
	for i, id := range l.Path {
		path[i] = formatID(id)
	}
	fields[fieldInitiator] = formatID(l.InitiatorID)
	fields[fieldSeq] = l.Seq
	fields[fieldKey] = formatID(l.Key)
	fields[fieldPath] = path
}

// DecodeMessage converts a wire message back to a chord message.
func DecodeMessage(s *structpb.Struct) (chord.Message, error) {
	fields := s.GetFields()

	switch kind := fields[fieldKind].GetStringValue(); kind {
	case chord.KindRoute:
		l, err := decodeLookup(fields)
		if err != nil {
			return nil, err
		}
		return chord.RouteRequest{Lookup: l}, nil
	case chord.KindReply:
		l, err := decodeLookup(fields)
		if err != nil {
			return nil, err
		}
		return chord.Reply{Lookup: l}, nil
	case chord.KindDone:
		// the sender is informational; a bare done is still a done
		return chord.Done{From: chord.Address(int(fields[fieldFrom].GetNumberValue()))}, nil
	default:
		return nil, fmt.Errorf("unknown message kind %q", kind)
	}
}

func decodeLookup(fields map[string]*structpb.Value) (chord.LookupMessage, error) {
	initiator, err := parseID(fields[fieldInitiator])
	if err != nil {
		return chord.LookupMessage{}, fmt.Errorf("initiator: %w", err)
	}
	key, err := parseID(fields[fieldKey])
	if err != nil {
		return chord.LookupMessage{}, fmt.Errorf("key: %w", err)
	}
	seq, ok := fields[fieldSeq]
	if !ok {
		return chord.LookupMessage{}, fmt.Errorf("lookup without sequence number")
	}

	var path []ring.ID
	for i, v := range fields[fieldPath].GetListValue().GetValues() {
		id, err := parseID(v)
		if err != nil {
			return chord.LookupMessage{}, fmt.Errorf("path[%d]: %w", i, err)
		}
		path = append(path, id)
	}

	return chord.LookupMessage{
		InitiatorID: initiator,
		Seq:         int(seq.GetNumberValue()),
		Key:         key,
		Path:        path,
	}, nil
}

func formatID(id ring.ID) string {
	return strconv.FormatUint(uint64(id), 10)
}

func parseID(v *structpb.Value) (ring.ID, error) {
	n, err := strconv.ParseUint(v.GetStringValue(), 10, 64)
	if err != nil {
		return 0, err
	}
	return ring.ID(n), nil
}
