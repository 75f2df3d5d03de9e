package otlpadapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"

	coltracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	resourcepb "go.opentelemetry.io/proto/otlp/resource/v1"
	tracepb "go.opentelemetry.io/proto/otlp/trace/v1"

	"github.com/sideseat/sideseat/span"
)

func strKV(k, v string) *commonpb.KeyValue {
	return &commonpb.KeyValue{Key: k, Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: v}}}
}

func intKV(k string, v int64) *commonpb.KeyValue {
	return &commonpb.KeyValue{Key: k, Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_IntValue{IntValue: v}}}
}

func sampleRequest() *coltracepb.ExportTraceServiceRequest {
	return &coltracepb.ExportTraceServiceRequest{
		ResourceSpans: []*tracepb.ResourceSpans{
			{
				Resource: &resourcepb.Resource{
					Attributes: []*commonpb.KeyValue{strKV("deployment.environment.name", "production")},
				},
				ScopeSpans: []*tracepb.ScopeSpans{
					{
						Scope: &commonpb.InstrumentationScope{Name: "openinference.instrumentation.openai"},
						Spans: []*tracepb.Span{
							{
								TraceId:           []byte{0x01, 0x02, 0x03, 0x04},
								SpanId:            []byte{0xaa, 0xbb},
								Name:              "chat_completion",
								Kind:              tracepb.Span_SPAN_KIND_CLIENT,
								StartTimeUnixNano: 1700000000000000000,
								EndTimeUnixNano:   1700000001000000000,
								Attributes: []*commonpb.KeyValue{
									strKV("openinference.span.kind", "LLM"),
									intKV("gen_ai.usage.input_tokens", 42),
								},
								Status: &tracepb.Status{Code: tracepb.Status_STATUS_CODE_OK},
							},
						},
					},
				},
			},
		},
	}
}

func TestToRawSpans_PopulatesIdentityAndTiming(t *testing.T) {
	spans := ToRawSpans(sampleRequest(), "proj1")
	require.Len(t, spans, 1)
	sp := spans[0]

	assert.Equal(t, "proj1", sp.ProjectID)
	assert.Equal(t, "01020304", sp.TraceID)
	assert.Equal(t, "aabb", sp.SpanID)
	assert.Equal(t, "chat_completion", sp.SpanName)
	assert.Equal(t, "client", sp.SpanKind)
	assert.Equal(t, "ok", sp.StatusCode)
	assert.Equal(t, "production", sp.Environment)
	assert.Equal(t, "openinference.instrumentation.openai", sp.Framework)
	assert.False(t, sp.TimestampStart.IsZero())
	assert.True(t, sp.TimestampEnd.After(sp.TimestampStart))
}

func TestToRawSpans_ClassifiesViaOpenInferenceKind(t *testing.T) {
	spans := ToRawSpans(sampleRequest(), "proj1")
	require.Len(t, spans, 1)
	assert.Equal(t, span.ObservationGeneration, spans[0].ObservationType)
	assert.Equal(t, "generation", spans[0].SpanCategory)
}

func TestToRawSpans_MergesResourceAndSpanAttributes(t *testing.T) {
	spans := ToRawSpans(sampleRequest(), "proj1")
	require.Len(t, spans, 1)
	assert.EqualValues(t, int64(42), spans[0].Attrs["gen_ai.usage.input_tokens"])
	assert.Equal(t, "production", spans[0].Attrs["deployment.environment.name"])
}

func TestDecodeTraceRequest_ProtobufRoundTrip(t *testing.T) {
	req := sampleRequest()
	body, err := proto.Marshal(req)
	require.NoError(t, err)

	decoded, err := DecodeTraceRequest(ContentTypeProtobuf, body)
	require.NoError(t, err)
	require.Len(t, decoded.GetResourceSpans(), 1)
	assert.Equal(t, "chat_completion", decoded.GetResourceSpans()[0].GetScopeSpans()[0].GetSpans()[0].GetName())
}

func TestDecodeTraceRequest_MalformedProtobufIsDecodeError(t *testing.T) {
	_, err := DecodeTraceRequest(ContentTypeProtobuf, []byte{0xff, 0xff, 0xff})
	require.Error(t, err)
}

func TestEncodeTraceResponse_ProtobufIsValid(t *testing.T) {
	body, err := EncodeTraceResponse(ContentTypeProtobuf)
	require.NoError(t, err)
	resp := &coltracepb.ExportTraceServiceResponse{}
	require.NoError(t, proto.Unmarshal(body, resp))
	assert.Nil(t, resp.PartialSuccess)
}

func TestClassify_DefaultsToPlainSpan(t *testing.T) {
	ot, category := classify(map[string]any{})
	assert.Equal(t, span.ObservationSpan, ot)
	assert.Equal(t, "span", category)
}

func TestAnyValueToGo_HandlesArrayAndNestedMap(t *testing.T) {
	v := &commonpb.AnyValue{
		Value: &commonpb.AnyValue_ArrayValue{
			ArrayValue: &commonpb.ArrayValue{
				Values: []*commonpb.AnyValue{
					{Value: &commonpb.AnyValue_StringValue{StringValue: "a"}},
					{Value: &commonpb.AnyValue_IntValue{IntValue: 1}},
				},
			},
		},
	}
	got := anyValueToGo(v)
	list, ok := got.([]any)
	require.True(t, ok)
	assert.Equal(t, "a", list[0])
	assert.EqualValues(t, 1, list[1])
}
