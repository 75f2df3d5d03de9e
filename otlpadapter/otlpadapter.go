// Package otlpadapter decodes OTLP ExportTraceServiceRequest payloads
// (protobuf or JSON, per the Content-Type the ingest endpoint receives —
// spec §6) into ingest.RawSpan values the processing pipeline understands.
// Nothing downstream of this package knows protobuf exists.
package otlpadapter

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	collogspb "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	colmetricspb "go.opentelemetry.io/proto/otlp/collector/metrics/v1"
	coltracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	tracepb "go.opentelemetry.io/proto/otlp/trace/v1"

	"github.com/sideseat/sideseat/ingest"
	"github.com/sideseat/sideseat/internal/apierr"
	"github.com/sideseat/sideseat/sideml/frameworks"
	"github.com/sideseat/sideseat/span"
)

// ContentTypeProtobuf and ContentTypeJSON are the two wire formats the OTLP
// receivers accept (spec §6).
const (
	ContentTypeProtobuf = "application/x-protobuf"
	ContentTypeJSON     = "application/json"
)

// DecodeTraceRequest unmarshals body into an ExportTraceServiceRequest
// according to contentType.
func DecodeTraceRequest(contentType string, body []byte) (*coltracepb.ExportTraceServiceRequest, error) {
	req := &coltracepb.ExportTraceServiceRequest{}
	switch contentType {
	case ContentTypeProtobuf:
		if err := proto.Unmarshal(body, req); err != nil {
			return nil, apierr.Decode(err, "otlpadapter: malformed protobuf trace payload")
		}
	case ContentTypeJSON, "":
		if err := protojson.Unmarshal(body, req); err != nil {
			return nil, apierr.Decode(err, "otlpadapter: malformed json trace payload")
		}
	default:
		return nil, apierr.Decode(fmt.Errorf("unsupported content-type %q", contentType), "otlpadapter: unsupported content-type")
	}
	return req, nil
}

// EncodeTraceResponse serializes an accepted-everything ExportTraceServiceResponse
// (partial_success left nil, spec §6 "with partial_success: null when all
// accepted") in the same wire format the request arrived in.
func EncodeTraceResponse(contentType string) ([]byte, error) {
	resp := &coltracepb.ExportTraceServiceResponse{}
	switch contentType {
	case ContentTypeProtobuf:
		return proto.Marshal(resp)
	default:
		return protojson.Marshal(resp)
	}
}

// DecodeLogsRequest unmarshals body into an ExportLogsServiceRequest. The
// reference store's data model (span.Span) has no log record type, so
// logs are accepted and validated for protocol completeness but never
// reach C1-C8; a production deployment would hand these to a separate
// log-indexing collaborator instead of the span pipeline.
func DecodeLogsRequest(contentType string, body []byte) (*collogspb.ExportLogsServiceRequest, error) {
	req := &collogspb.ExportLogsServiceRequest{}
	switch contentType {
	case ContentTypeProtobuf:
		if err := proto.Unmarshal(body, req); err != nil {
			return nil, apierr.Decode(err, "otlpadapter: malformed protobuf logs payload")
		}
	case ContentTypeJSON, "":
		if err := protojson.Unmarshal(body, req); err != nil {
			return nil, apierr.Decode(err, "otlpadapter: malformed json logs payload")
		}
	default:
		return nil, apierr.Decode(fmt.Errorf("unsupported content-type %q", contentType), "otlpadapter: unsupported content-type")
	}
	return req, nil
}

// EncodeLogsResponse mirrors EncodeTraceResponse for the logs receiver.
func EncodeLogsResponse(contentType string) ([]byte, error) {
	resp := &collogspb.ExportLogsServiceResponse{}
	switch contentType {
	case ContentTypeProtobuf:
		return proto.Marshal(resp)
	default:
		return protojson.Marshal(resp)
	}
}

// DecodeMetricsRequest unmarshals body into an ExportMetricsServiceRequest.
// Same scope note as DecodeLogsRequest: metrics are accepted but not
// persisted, since spec §3.1's data model defines spans only.
func DecodeMetricsRequest(contentType string, body []byte) (*colmetricspb.ExportMetricsServiceRequest, error) {
	req := &colmetricspb.ExportMetricsServiceRequest{}
	switch contentType {
	case ContentTypeProtobuf:
		if err := proto.Unmarshal(body, req); err != nil {
			return nil, apierr.Decode(err, "otlpadapter: malformed protobuf metrics payload")
		}
	case ContentTypeJSON, "":
		if err := protojson.Unmarshal(body, req); err != nil {
			return nil, apierr.Decode(err, "otlpadapter: malformed json metrics payload")
		}
	default:
		return nil, apierr.Decode(fmt.Errorf("unsupported content-type %q", contentType), "otlpadapter: unsupported content-type")
	}
	return req, nil
}

// EncodeMetricsResponse mirrors EncodeTraceResponse for the metrics receiver.
func EncodeMetricsResponse(contentType string) ([]byte, error) {
	resp := &colmetricspb.ExportMetricsServiceResponse{}
	switch contentType {
	case ContentTypeProtobuf:
		return proto.Marshal(resp)
	default:
		return protojson.Marshal(resp)
	}
}

// ToRawSpans flattens every span in req into an ingest.RawSpan stamped with
// projectID. Resource- and span-level attributes are merged, with span
// attributes winning on key collision; the instrumentation scope name is
// carried through as the framework-detection hint (spec §4.4 "Detection").
func ToRawSpans(req *coltracepb.ExportTraceServiceRequest, projectID string) []ingest.RawSpan {
	var out []ingest.RawSpan
	for _, rs := range req.GetResourceSpans() {
		resourceAttrs := attrsToMap(rs.GetResource().GetAttributes())
		environment := firstNonEmptyAttr(resourceAttrs, "deployment.environment.name", "deployment.environment")

		for _, ss := range rs.GetScopeSpans() {
			scopeName := ss.GetScope().GetName()
			for _, sp := range ss.GetSpans() {
				out = append(out, spanToRaw(sp, projectID, scopeName, environment, resourceAttrs))
			}
		}
	}
	return out
}

func spanToRaw(sp *tracepb.Span, projectID, scopeName, environment string, resourceAttrs map[string]any) ingest.RawSpan {
	attrs := mergeAttrs(resourceAttrs, attrsToMap(sp.GetAttributes()))

	events := make([]frameworks.Event, 0, len(sp.GetEvents()))
	for _, ev := range sp.GetEvents() {
		events = append(events, frameworks.Event{
			Name:  ev.GetName(),
			Attrs: attrsToMap(ev.GetAttributes()),
			Time:  time.Unix(0, int64(ev.GetTimeUnixNano())).UTC(),
		})
	}

	observationType, spanCategory := classify(attrs)

	raw := ingest.RawSpan{
		ProjectID:       projectID,
		TraceID:         hex.EncodeToString(sp.GetTraceId()),
		SpanID:          hex.EncodeToString(sp.GetSpanId()),
		SpanName:        sp.GetName(),
		SpanKind:        spanKindToString(sp.GetKind()),
		SpanCategory:    spanCategory,
		ObservationType: observationType,
		StatusCode:      statusCodeToString(sp.GetStatus().GetCode()),
		Environment:     environment,
		Framework:       scopeName,
		TimestampStart:  time.Unix(0, int64(sp.GetStartTimeUnixNano())).UTC(),
		Attrs:           attrs,
		Events:          events,
	}
	if parent := sp.GetParentSpanId(); len(parent) > 0 {
		raw.ParentSpanID = hex.EncodeToString(parent)
	}
	if end := sp.GetEndTimeUnixNano(); end != 0 {
		raw.TimestampEnd = time.Unix(0, int64(end)).UTC()
	}
	return raw
}

func firstNonEmptyAttr(attrs map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := attrs[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// openInferenceKindTypes and genAIOperationTypes classify a span
// into (observation_type, span_category) from the two most common
// convention-carried classification hints (spec §4.4's conventions double
// as classification signals: OTEL GenAI's gen_ai.operation.name and
// OpenInference's openinference.span.kind).
var openInferenceKindTypes = map[string]span.ObservationType{
	"LLM":       span.ObservationGeneration,
	"AGENT":     span.ObservationAgent,
	"TOOL":      span.ObservationTool,
	"CHAIN":     span.ObservationChain,
	"RETRIEVER": span.ObservationRetriever,
	"EMBEDDING": span.ObservationEmbedding,
	"RERANKER":  span.ObservationReranker,
}

var genAIOperationTypes = map[string]span.ObservationType{
	"chat":              span.ObservationGeneration,
	"generate_content":  span.ObservationGeneration,
	"text_completion":   span.ObservationGeneration,
	"embeddings":        span.ObservationEmbedding,
	"execute_tool":      span.ObservationTool,
	"create_agent":      span.ObservationAgent,
	"invoke_agent":      span.ObservationAgent,
}

func classify(attrs map[string]any) (span.ObservationType, string) {
	if v, ok := attrs["openinference.span.kind"].(string); ok {
		if ot, ok := openInferenceKindTypes[strings.ToUpper(v)]; ok {
			return ot, categoryOf(ot)
		}
	}
	if v, ok := attrs["gen_ai.operation.name"].(string); ok {
		if ot, ok := genAIOperationTypes[strings.ToLower(v)]; ok {
			return ot, categoryOf(ot)
		}
	}
	return span.ObservationSpan, categoryOf(span.ObservationSpan)
}

func categoryOf(ot span.ObservationType) string {
	switch ot {
	case span.ObservationGeneration:
		return "generation"
	case span.ObservationEmbedding, span.ObservationRetriever, span.ObservationReranker:
		return "retrieval"
	case span.ObservationAgent, span.ObservationTool, span.ObservationChain:
		return "orchestration"
	default:
		return "span"
	}
}

func spanKindToString(k tracepb.Span_SpanKind) string {
	switch k {
	case tracepb.Span_SPAN_KIND_INTERNAL:
		return "internal"
	case tracepb.Span_SPAN_KIND_SERVER:
		return "server"
	case tracepb.Span_SPAN_KIND_CLIENT:
		return "client"
	case tracepb.Span_SPAN_KIND_PRODUCER:
		return "producer"
	case tracepb.Span_SPAN_KIND_CONSUMER:
		return "consumer"
	default:
		return "unspecified"
	}
}

func statusCodeToString(c tracepb.Status_StatusCode) string {
	switch c {
	case tracepb.Status_STATUS_CODE_OK:
		return "ok"
	case tracepb.Status_STATUS_CODE_ERROR:
		return "error"
	default:
		return "unset"
	}
}

func attrsToMap(kvs []*commonpb.KeyValue) map[string]any {
	out := make(map[string]any, len(kvs))
	for _, kv := range kvs {
		out[kv.GetKey()] = anyValueToGo(kv.GetValue())
	}
	return out
}

func mergeAttrs(base, overlay map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}

// anyValueToGo converts one OTLP AnyValue into the any-typed shape the rest
// of the pipeline (extract, frameworks, genai) expects: string, bool,
// int64, float64, []any, or map[string]any, recursively.
func anyValueToGo(v *commonpb.AnyValue) any {
	if v == nil {
		return nil
	}
	switch val := v.Value.(type) {
	case *commonpb.AnyValue_StringValue:
		return val.StringValue
	case *commonpb.AnyValue_BoolValue:
		return val.BoolValue
	case *commonpb.AnyValue_IntValue:
		return val.IntValue
	case *commonpb.AnyValue_DoubleValue:
		return val.DoubleValue
	case *commonpb.AnyValue_BytesValue:
		return val.BytesValue
	case *commonpb.AnyValue_ArrayValue:
		values := val.ArrayValue.GetValues()
		out := make([]any, len(values))
		for i, item := range values {
			out[i] = anyValueToGo(item)
		}
		return out
	case *commonpb.AnyValue_KvlistValue:
		return attrsToMap(val.KvlistValue.GetValues())
	default:
		return nil
	}
}
