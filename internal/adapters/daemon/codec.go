package daemon

import (
	"time"

	"go.trai.ch/stitch/internal/core/domain"
	"go.trai.ch/stitch/internal/core/ports"
	"go.trai.ch/zerr"
	"google.golang.org/protobuf/types/known/structpb"
)

// Field names of the Build request struct.
const (
	fieldSources     = "sources"
	fieldDestination = "destination"
	fieldSourcemap   = "sourcemap"
)

// Field names of the Ping and Status response structs.
const (
	fieldPID           = "pid"
	fieldUptime        = "uptime_seconds"
	fieldLastActivity  = "last_activity_unix"
	fieldIdleRemaining = "idle_remaining_seconds"
	fieldCacheEntries  = "cache_entries"
)

var errMalformedRequest = zerr.New("malformed build request")

// EncodeRequest converts a normalized request to its wire form.
func EncodeRequest(req domain.ConcatRequest) (*structpb.Struct, error) {
	sources := make([]any, len(req.Sources))
	for i, src := range req.Sources {
		sources[i] = src
	}
	msg, err := structpb.NewStruct(map[string]any{
		fieldSources:     sources,
		fieldDestination: req.Destination,
		fieldSourcemap:   req.Sourcemap,
	})
	if err != nil {
		return nil, zerr.Wrap(err, "failed to encode build request")
	}
	return msg, nil
}

// DecodeRequest converts a wire request back to a normalized request.
func DecodeRequest(msg *structpb.Struct) (domain.ConcatRequest, error) {
	fields := msg.GetFields()

	list := fields[fieldSources].GetListValue()
	if list == nil {
		return domain.ConcatRequest{}, zerr.With(errMalformedRequest, "field", fieldSources)
	}
	sources := make([]string, 0, len(list.GetValues()))
	for _, v := range list.GetValues() {
		s, ok := v.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return domain.ConcatRequest{}, zerr.With(errMalformedRequest, "field", fieldSources)
		}
		sources = append(sources, s.StringValue)
	}

	dest := fields[fieldDestination].GetStringValue()
	if dest == "" {
		return domain.ConcatRequest{}, zerr.With(errMalformedRequest, "field", fieldDestination)
	}

	return domain.ConcatRequest{
		Sources:     sources,
		Destination: dest,
		Sourcemap:   fields[fieldSourcemap].GetBoolValue(),
	}, nil
}

// EncodeStatus converts a status to its wire form.
func EncodeStatus(st *ports.DaemonStatus) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldPID:           structpb.NewNumberValue(float64(st.PID)),
		fieldUptime:        structpb.NewNumberValue(st.Uptime.Seconds()),
		fieldLastActivity:  structpb.NewNumberValue(float64(st.LastActivity.Unix())),
		fieldIdleRemaining: structpb.NewNumberValue(st.IdleRemaining.Seconds()),
		fieldCacheEntries:  structpb.NewNumberValue(float64(st.CacheEntries)),
	}}
}

// DecodeStatus converts a wire status back.
func DecodeStatus(msg *structpb.Struct) *ports.DaemonStatus {
	fields := msg.GetFields()
	seconds := func(key string) time.Duration {
		return time.Duration(fields[key].GetNumberValue() * float64(time.Second))
	}
	return &ports.DaemonStatus{
		Running:       true,
		PID:           int(fields[fieldPID].GetNumberValue()),
		Uptime:        seconds(fieldUptime),
		LastActivity:  time.Unix(int64(fields[fieldLastActivity].GetNumberValue()), 0),
		IdleRemaining: seconds(fieldIdleRemaining),
		CacheEntries:  int(fields[fieldCacheEntries].GetNumberValue()),
	}
}
