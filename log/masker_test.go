/*
Copyright © 2025 ReelPlate.

Released under MIT license.
*/

package log

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMaskerMasksAPIKeyInURL(t *testing.T) {
	m := NewMasker(DefaultMasks)

	masked := m.Mask("https://api.themoviedb.org/3/search/movie?api_key=0123456789abcdef&query=alien")
	require.Equal(t, "https://api.themoviedb.org/3/search/movie?api_key=***&query=alien", masked)

	masked = m.Mask("https://maps.googleapis.com/maps/api/place/textsearch/json?query=pizza&key=AIzaSyDummy")
	require.Equal(t, "https://maps.googleapis.com/maps/api/place/textsearch/json?query=pizza&key=***", masked)
}

func TestMaskerMasksAPIKeyInJSON(t *testing.T) {
	m := NewMasker(DefaultMasks)

	masked := m.Mask(`{"api_key": "0123456789abcdef", "query": "alien"}`)
	require.Equal(t, `{"api_key": "***", "query": "alien"}`, masked)

	masked = m.Mask(`{"apiKey": "0123456789abcdef"}`)
	require.Equal(t, `{"apikey": "***"}`, masked)
}

func TestMaskerMasksAuthorizationHeader(t *testing.T) {
	m := NewMasker(DefaultMasks)

	masked := m.Mask("GET / HTTP/1.1\r\nAuthorization: Bearer secret-token\r\nHost: example.com\r\n")
	require.Equal(t, "GET / HTTP/1.1\r\nAuthorization: ***\r\nHost: example.com\r\n", masked)
}

func TestMaskerLeavesCleanStringsAlone(t *testing.T) {
	m := NewMasker(DefaultMasks)

	clean := "https://api.themoviedb.org/3/movie/348"
	require.Equal(t, clean, m.Mask(clean))
}

func TestMaskerCustomRule(t *testing.T) {
	m := NewMasker([]MaskingRuleConfig{
		{
			Field: "session",
			Masks: []MaskConfig{{RegExp: `session-[0-9]+`, Mask: "session-***"}},
		},
	})
	require.Equal(t, "active session-***", m.Mask("active session-12345"))
}

func TestMaskingLogger(t *testing.T) {
	m := NewMasker(DefaultMasks)

	recorder := newRecordingLogger()
	logger := NewMaskingLogger(recorder, m)
	logger.Info("request failed", String("url", "https://example.com?api_key=secret"))

	require.Len(t, recorder.entries, 1)
	entry := recorder.entries[0]
	require.Equal(t, "request failed", entry.text)
	require.Len(t, entry.fields, 1)
	require.Equal(t, "https://example.com?api_key=***", string(entry.fields[0].Bytes))
}

// recordingLogger captures calls for masking assertions without a full logf pipeline.
type recordingLogger struct {
	entries []recordedCall
}

type recordedCall struct {
	text   string
	fields []Field
}

func newRecordingLogger() *recordingLogger {
	return &recordingLogger{}
}

func (l *recordingLogger) record(text string, fs []Field) {
	l.entries = append(l.entries, recordedCall{text: text, fields: fs})
}

func (l *recordingLogger) With(fs ...Field) FieldLogger              { return l }
func (l *recordingLogger) Debug(text string, fs ...Field)            { l.record(text, fs) }
func (l *recordingLogger) Info(text string, fs ...Field)             { l.record(text, fs) }
func (l *recordingLogger) Warn(text string, fs ...Field)             { l.record(text, fs) }
func (l *recordingLogger) Error(text string, fs ...Field)            { l.record(text, fs) }
func (l *recordingLogger) Debugf(format string, args ...interface{}) {}
func (l *recordingLogger) Infof(format string, args ...interface{})  {}
func (l *recordingLogger) Warnf(format string, args ...interface{})  {}
func (l *recordingLogger) Errorf(format string, args ...interface{}) {}
func (l *recordingLogger) AtLevel(level Level, fn func(logFunc LogFunc)) {
}
func (l *recordingLogger) WithLevel(level Level) FieldLogger { return l }
