package diagnostics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/conduit-lang/metaregistry/runtime/registry"
)

// sampleReport builds a report with one warning (attr has no base type) and, if broken,
// one error (field.string inherits from an unregistered type).
func sampleReport(t *testing.T, broken bool) *registry.HealthReport {
	t.Helper()
	reg := registry.New()
	fieldBase := registry.NewTypeID("field", "base")
	require.NoError(t, reg.RegisterType(fieldBase, "", registry.TypeID{}, registry.OptionalAttribute("required", "boolean")))
	require.NoError(t, reg.RegisterType(registry.NewTypeID("field", "int"), "", fieldBase))
	require.NoError(t, reg.RegisterType(registry.NewTypeID("attr", "string"), "", registry.TypeID{}))
	if broken {
		require.NoError(t, reg.RegisterType(registry.NewTypeID("field", "string"), "", registry.NewTypeID("text", "base")))
	}
	return reg.ValidateConsistency()
}

func setupTestRedis(t *testing.T, history int) (*RedisSink, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sink := NewRedisSinkWithClient(client, RedisConfig{Key: "test:health", History: history})
	t.Cleanup(func() { sink.Close() })
	return sink, mr
}

func TestRedisSink(t *testing.T) {
	ctx := context.Background()
	sink, mr := setupTestRedis(t, 2)

	_, err := sink.Latest(ctx)
	assert.ErrorIs(t, err, ErrNoReport)

	var published []*registry.HealthReport
	for i := 0; i < 3; i++ {
		report := sampleReport(t, i == 2)
		require.NoError(t, sink.Publish(ctx, report))
		published = append(published, report)
	}

	latest, err := sink.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, published[2].ID, latest.ID)
	assert.False(t, latest.IsStructurallySound())
	assert.Equal(t, published[2].Errors, latest.Errors)
	assert.Equal(t, published[2].Summary(), latest.Summary())
	assert.True(t, published[2].GeneratedAt.Equal(latest.GeneratedAt))

	history, err := sink.History(ctx, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, published[2].ID, history[0].ID)
	assert.Equal(t, published[1].ID, history[1].ID)

	items, err := mr.List("test:health:history")
	require.NoError(t, err)
	assert.Len(t, items, 2)

	history, err = sink.History(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestNewRedisSink(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	addr := mr.Addr()
	sink, err := NewRedisSink(context.Background(), RedisConfig{Addr: addr})
	require.NoError(t, err)
	defer sink.Close()
	assert.Equal(t, "metareg:health", sink.config.Key)
	assert.Equal(t, 50, sink.config.History)

	mr.Close()
	_, err = NewRedisSink(context.Background(), RedisConfig{Addr: addr})
	assert.ErrorContains(t, err, "connecting to redis")
}

func TestSQLSink_Mock(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sink, err := NewSQLSink(db, "postgres", "")
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS registry_health_reports")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, sink.Initialize(ctx))

	report := sampleReport(t, false)
	mock.ExpectExec(regexp.QuoteMeta(
		"INSERT INTO registry_health_reports (id, generated_at, sound, errors, warnings, summary, report) VALUES ($1, $2, $3, $4, $5, $6, $7)")).
		WithArgs(report.ID, sqlmock.AnyArg(), true, 0, 1, report.Summary(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, sink.Publish(ctx, report))

	data, err := json.Marshal(report)
	require.NoError(t, err)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT report FROM registry_health_reports ORDER BY generated_at DESC LIMIT 1")).
		WillReturnRows(sqlmock.NewRows([]string{"report"}).AddRow(string(data)))
	latest, err := sink.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, report.ID, latest.ID)

	mock.ExpectQuery("SELECT report FROM registry_health_reports").
		WillReturnRows(sqlmock.NewRows([]string{"report"}))
	_, err = sink.Latest(ctx)
	assert.ErrorIs(t, err, ErrNoReport)

	mock.ExpectExec("INSERT INTO registry_health_reports").WillReturnError(errors.New("disk full"))
	err = sink.Publish(ctx, report)
	assert.ErrorContains(t, err, "disk full")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLSink_SQLite(t *testing.T) {
	ctx := context.Background()
	sink, err := OpenSQLSink(ctx, "sqlite3", filepath.Join(t.TempDir(), "health.db"), "reports")
	require.NoError(t, err)
	defer sink.Close()

	require.NoError(t, sink.Initialize(ctx))

	first := sampleReport(t, true)
	second := sampleReport(t, false)
	require.NoError(t, sink.Publish(ctx, first))
	require.NoError(t, sink.Publish(ctx, second))

	n, err := sink.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	latest, err := sink.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
}

func TestNewSQLSink_Invalid(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, err = NewSQLSink(db, "sqlite3", "reports; DROP TABLE users")
	assert.ErrorContains(t, err, "invalid table name")
	_, err = NewSQLSink(db, "mysql", "")
	assert.ErrorContains(t, err, "unsupported driver")
}

type failingSink struct{}

func (failingSink) Publish(context.Context, *registry.HealthReport) error { return errors.New("down") }
func (failingSink) Latest(context.Context) (*registry.HealthReport, error) {
	return nil, ErrNoReport
}
func (failingSink) Close() error { return nil }

func TestMultiSink(t *testing.T) {
	ctx := context.Background()
	redisSink, _ := setupTestRedis(t, 5)
	multi := MultiSink{failingSink{}, redisSink}

	report := sampleReport(t, false)
	err := multi.Publish(ctx, report)
	assert.ErrorContains(t, err, "down")

	latest, err := multi.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, report.ID, latest.ID)

	_, err = MultiSink{failingSink{}}.Latest(ctx)
	assert.ErrorIs(t, err, ErrNoReport)
}

func TestParseFormat(t *testing.T) {
	for input, want := range map[string]Format{"": FormatText, "TEXT": FormatText, "json": FormatJSON, " yaml ": FormatYAML} {
		got, err := ParseFormat(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	report := sampleReport(t, true)

	var text bytes.Buffer
	require.NoError(t, Render(&text, report, FormatText, RenderOptions{NoColor: true, Verbose: true}))
	out := text.String()
	assert.Contains(t, out, "Registry UNHEALTHY: 4 types, 1 errors, 1 warnings")
	assert.Contains(t, out, "✗ [UnresolvedParentType] Type field.string cannot find parent text.base")
	assert.Contains(t, out, "! [MissingBaseType]")
	assert.Contains(t, out, "→ Register attr.base")
	assert.Contains(t, out, "field.int -> field.base")
	assert.NotContains(t, out, "\x1b[")

	var js bytes.Buffer
	require.NoError(t, Render(&js, report, FormatJSON, RenderOptions{}))
	var decoded registry.HealthReport
	require.NoError(t, json.Unmarshal(js.Bytes(), &decoded))
	assert.Equal(t, report.ID, decoded.ID)

	var ym bytes.Buffer
	require.NoError(t, Render(&ym, report, FormatYAML, RenderOptions{}))
	var generic map[string]any
	require.NoError(t, yaml.Unmarshal(ym.Bytes(), &generic))
	assert.Equal(t, report.ID, generic["id"])
	assert.Len(t, generic["errors"], 1)

	assert.Error(t, Render(&js, report, Format("xml"), RenderOptions{}))
}
