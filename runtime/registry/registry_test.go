package registry

import (
	"fmt"
	"sync"
	"testing"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var (
	fieldBase   = NewTypeID("field", "base")
	fieldString = NewTypeID("field", "string")
	fieldInt    = NewTypeID("field", "int")
	attrString  = NewTypeID("attr", "string")
	attrBoolean = NewTypeID("attr", "boolean")
	attrInt     = NewTypeID("attr", "int")
)

func TestRegistry_RegisterType(t *testing.T) {
	t.Run("register and get definition", func(t *testing.T) {
		r := New()

		err := r.RegisterType(fieldBase, "Base field", TypeID{}, OptionalAttribute("required", "boolean"))
		require.NoError(t, err)

		def, ok := r.TypeDefinition(fieldBase)
		require.True(t, ok)
		assert.Equal(t, fieldBase, def.ID())
		assert.Equal(t, "Base field", def.Description())
		assert.False(t, def.HasParent())
		assert.Len(t, def.DirectRequirements(), 1)

		assert.True(t, r.IsRegistered(fieldBase))
		assert.False(t, r.IsRegistered(fieldString))

		required, err := r.RequireType(fieldBase)
		require.NoError(t, err)
		assert.Same(t, def, required)
		_, err = r.RequireType(fieldString)
		assert.ErrorIs(t, err, ErrTypeNotRegistered)
		assert.ErrorContains(t, err, "field.string")
		assert.True(t, r.HasFamily("field"))
		assert.False(t, r.HasFamily("object"))
	})

	t.Run("rejects invalid identities", func(t *testing.T) {
		r := New()

		err := r.RegisterType(TypeID{Type: "field"}, "", TypeID{})
		assert.ErrorIs(t, err, ErrInvalidDefinition)

		err = r.RegisterType(NewTypeID("field", "*"), "", TypeID{})
		assert.ErrorIs(t, err, ErrInvalidDefinition)

		err = r.RegisterType(fieldString, "", NewTypeID("*", "base"))
		assert.ErrorIs(t, err, ErrInvalidDefinition)

		assert.ErrorIs(t, r.RegisterDefinition(nil), ErrInvalidDefinition)
		assert.Equal(t, 0, r.Count())
	})

	t.Run("same key within a definition overwrites", func(t *testing.T) {
		r := New()

		err := r.RegisterType(fieldString, "", TypeID{},
			OptionalAttribute("pattern", "string"),
			RequiredAttribute("pattern", "string"))
		require.NoError(t, err)

		def, _ := r.TypeDefinition(fieldString)
		reqs := def.DirectRequirements()
		require.Len(t, reqs, 1)
		assert.True(t, reqs[0].Required)
	})

	t.Run("all types sorted", func(t *testing.T) {
		r := New()
		for _, id := range []TypeID{fieldString, attrString, fieldBase} {
			require.NoError(t, r.RegisterType(id, "", TypeID{}))
		}

		assert.Equal(t, []TypeID{attrString, fieldBase, fieldString}, r.AllTypes())
		assert.Equal(t, 3, r.Count())
		assert.Len(t, r.Definitions(), 3)
	})
}

func TestRegistry_DuplicateRegistration(t *testing.T) {
	t.Run("identical registration is not a conflict", func(t *testing.T) {
		r := New()
		require.NoError(t, r.RegisterType(fieldBase, "Base field", TypeID{}))
		require.NoError(t, r.RegisterType(fieldBase, "Base field", TypeID{}))

		assert.Empty(t, r.Conflicts())
	})

	t.Run("last writer wins with a recorded conflict", func(t *testing.T) {
		r := New()
		require.NoError(t, r.RegisterType(fieldBase, "first", TypeID{}))
		require.NoError(t, r.RegisterType(fieldBase, "second", TypeID{}))

		def, _ := r.TypeDefinition(fieldBase)
		assert.Equal(t, "second", def.Description())

		conflicts := r.Conflicts()
		require.Len(t, conflicts, 1)
		assert.Equal(t, fieldBase, conflicts[0].Type)
		assert.NotEmpty(t, conflicts[0].ID)
		assert.Contains(t, conflicts[0].String(), `replaced "first" with "second"`)
	})

	t.Run("strict mode rejects differing definitions", func(t *testing.T) {
		r := New(WithStrictDuplicates(true))
		require.NoError(t, r.RegisterType(fieldBase, "first", TypeID{}))

		err := r.RegisterType(fieldBase, "second", TypeID{})
		assert.ErrorIs(t, err, ErrDuplicateType)

		def, _ := r.TypeDefinition(fieldBase)
		assert.Equal(t, "first", def.Description())
		assert.Empty(t, r.Conflicts())
	})
}

func TestRegistry_Builder(t *testing.T) {
	r := New()
	factory := func(id TypeID, name string) (any, error) { return name, nil }

	def := Define("Field", "String").
		Description("String field").
		InheritsFrom("field", "base").
		OptionalAttribute("pattern", "string").
		RequiredAttribute("maxLength", "int").
		AcceptsChildren("validator", "*").
		Factory(factory).
		Build()
	require.NoError(t, r.RegisterDefinition(def))

	got, ok := r.TypeDefinition(fieldString)
	require.True(t, ok)
	parent, hasParent := got.Parent()
	assert.True(t, hasParent)
	assert.Equal(t, fieldBase, parent)
	assert.NotNil(t, got.Factory())

	req, ok := got.Requirement("*:validator:*")
	require.True(t, ok)
	assert.True(t, req.IsWildcardName())

	req, ok = got.Requirement("maxLength")
	require.True(t, ok)
	assert.True(t, req.Required)
}

func TestRegistry_ExtendType(t *testing.T) {
	t.Run("adds requirements", func(t *testing.T) {
		r := New()
		require.NoError(t, r.RegisterType(fieldString, "String field", TypeID{}, OptionalAttribute("pattern", "string")))

		err := r.ExtendType(fieldString, func(b *DefinitionBuilder) {
			b.OptionalAttribute("maxLength", "int")
		})
		require.NoError(t, err)

		def, _ := r.TypeDefinition(fieldString)
		assert.Len(t, def.DirectRequirements(), 2)
		assert.Equal(t, "String field", def.Description())
	})

	t.Run("unknown type", func(t *testing.T) {
		r := New()
		err := r.ExtendType(fieldString, func(b *DefinitionBuilder) {})
		assert.ErrorIs(t, err, ErrTypeNotRegistered)
	})

	t.Run("previous definition is not mutated", func(t *testing.T) {
		r := New()
		require.NoError(t, r.RegisterType(fieldString, "", TypeID{}, OptionalAttribute("pattern", "string")))
		before, _ := r.TypeDefinition(fieldString)

		require.NoError(t, r.ExtendType(fieldString, func(b *DefinitionBuilder) {
			b.OptionalAttribute("maxLength", "int")
		}))

		assert.Len(t, before.DirectRequirements(), 1)
	})

	t.Run("callback may query the registry", func(t *testing.T) {
		r := New()
		require.NoError(t, r.RegisterType(fieldBase, "", TypeID{}, OptionalAttribute("required", "boolean")))
		require.NoError(t, r.RegisterType(fieldString, "", fieldBase))

		done := make(chan error, 1)
		go func() {
			done <- r.ExtendType(fieldString, func(b *DefinitionBuilder) {
				if r.AcceptsChild(fieldBase, attrBoolean, "required") {
					b.OptionalAttribute("pattern", "string")
				}
			})
		}()

		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("ExtendType did not return")
		}
		assert.True(t, r.AcceptsChild(fieldString, attrString, "pattern"))
	})

	t.Run("overwritten keys are logged", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		r := New(WithLogger(zap.New(core)))
		require.NoError(t, r.RegisterType(fieldString, "", TypeID{}, OptionalAttribute("pattern", "string")))

		require.NoError(t, r.ExtendType(fieldString, func(b *DefinitionBuilder) {
			b.RequiredAttribute("pattern", "string")
		}))

		entries := logs.FilterMessage("child requirement overwritten by extension").All()
		require.Len(t, entries, 1)
		assert.Equal(t, "pattern", entries[0].ContextMap()["key"])

		def, _ := r.TypeDefinition(fieldString)
		req, ok := def.Requirement("pattern")
		require.True(t, ok)
		assert.True(t, req.Required)
	})
}

func TestRegistry_CacheTTL(t *testing.T) {
	r := New(WithCacheTTL(time.Millisecond))
	assert.Equal(t, time.Millisecond, r.cacheTTL)
	require.NoError(t, r.RegisterType(fieldBase, "", TypeID{}, OptionalAttribute("required", "boolean")))
	require.NoError(t, r.RegisterType(fieldString, "", fieldBase, OptionalAttribute("pattern", "string")))

	reqs, err := r.EffectiveChildRequirements(fieldString)
	require.NoError(t, err)
	assert.Len(t, reqs, 2)

	time.Sleep(5 * time.Millisecond)
	reqs, err = r.EffectiveChildRequirements(fieldString)
	require.NoError(t, err)
	assert.Len(t, reqs, 2)

	assert.Equal(t, time.Duration(gocache.NoExpiration), New().cacheTTL)
}

func TestRegistry_Stats(t *testing.T) {
	r := New()
	require.NoError(t, r.RegisterType(fieldBase, "", TypeID{}))
	require.NoError(t, r.RegisterType(fieldString, "", fieldBase))
	require.NoError(t, r.RegisterType(fieldInt, "", fieldBase))
	require.NoError(t, r.RegisterType(attrString, "", NewTypeID("attr", "base")))

	stats := r.Stats()
	assert.Equal(t, 4, stats.TotalTypes)
	assert.Equal(t, 3, stats.TypesByFamily["field"])
	assert.Equal(t, 1, stats.TypesByFamily["attr"])
	assert.Equal(t, 3, stats.TypesWithParent)
	assert.Equal(t, 1, stats.PendingLinks)
	assert.Equal(t, 0, stats.Conflicts)
}

func TestRegistry_ConcurrentRegistration(t *testing.T) {
	const workers = 16
	const perWorker = 50

	r := New()
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id := NewTypeID(fmt.Sprintf("family%d", w), fmt.Sprintf("sub%d", i))
				err := r.RegisterType(id, id.String(), NewTypeID(id.Type, SubTypeBase),
					OptionalAttribute("a", "string"))
				assert.NoError(t, err)
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, workers*perWorker, r.Count())
	for w := 0; w < workers; w++ {
		for i := 0; i < perWorker; i++ {
			id := NewTypeID(fmt.Sprintf("family%d", w), fmt.Sprintf("sub%d", i))
			def, ok := r.TypeDefinition(id)
			require.True(t, ok, "missing %s", id)
			assert.Equal(t, id.String(), def.Description())
			assert.Len(t, def.DirectRequirements(), 1)
		}
	}
}

func TestRegistry_ConcurrentSameType(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			_ = r.RegisterType(fieldBase, fmt.Sprintf("writer %d", w), TypeID{},
				OptionalAttribute(fmt.Sprintf("attr%d", w), "string"))
		}(w)
	}
	wg.Wait()

	def, ok := r.TypeDefinition(fieldBase)
	require.True(t, ok)
	reqs := def.DirectRequirements()
	require.Len(t, reqs, 1)
	// the surviving definition is one writer's, never a mix
	assert.Equal(t, "writer "+reqs[0].Name[len("attr"):], def.Description())
	assert.Len(t, r.Conflicts(), 7)
}
