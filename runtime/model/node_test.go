package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/metaregistry/runtime/constraint"
	"github.com/conduit-lang/metaregistry/runtime/registry"
)

var (
	objectPojo  = registry.NewTypeID("object", "pojo")
	fieldString = registry.NewTypeID("field", "string")
	fieldInt    = registry.NewTypeID("field", "int")
	attrString  = registry.NewTypeID("attr", "string")
	attrBoolean = registry.NewTypeID("attr", "boolean")
	keyPrimary  = registry.NewTypeID("key", "primary")
)

type pojo struct{ name string }

func newTestLoader(t *testing.T) *Loader {
	t.Helper()
	reg := registry.New()
	defs := []*registry.TypeDefinition{
		registry.Define("object", "base").
			AcceptsChildren("field", "*").
			AcceptsChildren("key", "*").
			OptionalAttribute("dbTable", "string").Build(),
		registry.Define("object", "pojo").InheritsFrom("object", "base").
			Required("*", "key", "primary").
			Factory(func(id registry.TypeID, name string) (any, error) { return &pojo{name: name}, nil }).
			Build(),
		registry.Define("field", "base").OptionalAttribute("required", "boolean").Build(),
		registry.Define("field", "string").InheritsFrom("field", "base").
			OptionalAttribute("pattern", "string").
			RequiredAttribute("maxLength", "int").Build(),
		registry.Define("field", "int").InheritsFrom("field", "base").Build(),
		registry.Define("attr", "base").Build(),
		registry.Define("attr", "string").InheritsFrom("attr", "base").Build(),
		registry.Define("attr", "int").InheritsFrom("attr", "base").Build(),
		registry.Define("attr", "boolean").InheritsFrom("attr", "base").Build(),
		registry.Define("key", "base").Build(),
		registry.Define("key", "primary").InheritsFrom("key", "base").Build(),
		registry.Define("view", "broken").
			Factory(func(registry.TypeID, string) (any, error) { return nil, errors.New("boom") }).
			Build(),
	}
	for _, def := range defs {
		require.NoError(t, reg.RegisterDefinition(def))
	}
	reg.ResolveDeferredInheritance()
	return NewLoader(constraint.NewEngine(reg))
}

func TestLoader_NewNode(t *testing.T) {
	l := newTestLoader(t)

	t.Run("binds factory object", func(t *testing.T) {
		n, err := l.NewNode(objectPojo, "User")
		require.NoError(t, err)
		require.IsType(t, &pojo{}, n.Object())
		assert.Equal(t, "User", n.Object().(*pojo).name)
		assert.Nil(t, n.Parent())
	})

	t.Run("no factory", func(t *testing.T) {
		n, err := l.NewNode(fieldString, "email", WithValue("x"))
		require.NoError(t, err)
		assert.Nil(t, n.Object())
		assert.Equal(t, "x", n.Value())
	})

	t.Run("invalid name", func(t *testing.T) {
		_, err := l.NewNode(fieldString, "1email")
		assert.ErrorIs(t, err, constraint.ErrInvalidName)
	})

	t.Run("unregistered type", func(t *testing.T) {
		_, err := l.NewNode(registry.NewTypeID("field", "uuid"), "id")
		assert.ErrorIs(t, err, constraint.ErrUnknownType)
	})

	t.Run("factory failure", func(t *testing.T) {
		_, err := l.NewNode(registry.NewTypeID("view", "broken"), "v")
		assert.ErrorContains(t, err, "boom")
	})
}

func TestNode_AddChild(t *testing.T) {
	l := newTestLoader(t)

	user, err := l.NewNode(objectPojo, "User")
	require.NoError(t, err)

	email, err := l.Add(user, fieldString, "email")
	require.NoError(t, err)
	assert.Same(t, user, email.Parent())
	assert.Equal(t, "User/email", email.Path())
	assert.Same(t, user, email.Root())

	t.Run("uniqueness", func(t *testing.T) {
		dup, err := l.NewNode(fieldString, "email")
		require.NoError(t, err)

		err = user.AddChild(dup)
		require.ErrorIs(t, err, constraint.ErrDuplicateChild)
		assert.Nil(t, dup.Parent())
		assert.Equal(t, 1, user.Len())
	})

	t.Run("rejected child leaves tree unchanged", func(t *testing.T) {
		_, err := l.Add(email, attrString, "unknown")
		require.ErrorIs(t, err, constraint.ErrChildNotAccepted)
		assert.Equal(t, 0, email.Len())

		_, err = l.Add(email, attrString, "pattern")
		assert.NoError(t, err)
	})

	t.Run("child already attached", func(t *testing.T) {
		other, err := l.NewNode(objectPojo, "Other")
		require.NoError(t, err)
		assert.ErrorIs(t, other.AddChild(email), ErrAlreadyAttached)
	})

	t.Run("ancestor cannot become child", func(t *testing.T) {
		assert.ErrorIs(t, email.AddChild(user), ErrAlreadyAttached)
		assert.Error(t, user.AddChild(nil))
	})

	t.Run("insertion order", func(t *testing.T) {
		_, err := l.Add(user, fieldInt, "age")
		require.NoError(t, err)
		_, err = l.Add(user, keyPrimary, "pk")
		require.NoError(t, err)

		var names []string
		for _, c := range user.Children() {
			names = append(names, c.Name())
		}
		assert.Equal(t, []string{"email", "age", "pk"}, names)
	})
}

func TestNode_Lookups(t *testing.T) {
	l := newTestLoader(t)
	user, err := l.NewNode(objectPojo, "User")
	require.NoError(t, err)
	_, err = l.Add(user, fieldString, "email")
	require.NoError(t, err)
	age, err := l.Add(user, fieldInt, "age")
	require.NoError(t, err)
	_, err = l.Add(user, attrString, "dbTable", WithValue("users"))
	require.NoError(t, err)

	found, ok := user.FindChild("age")
	require.True(t, ok)
	assert.Same(t, age, found)

	_, ok = user.FindChild("age", fieldString)
	assert.False(t, ok)
	_, ok = user.FindChild("age", fieldString, fieldInt)
	assert.True(t, ok)
	_, ok = user.FindChild("age", registry.NewTypeID("field", "*"))
	assert.True(t, ok)
	_, ok = user.FindChild("missing")
	assert.False(t, ok)

	_, err = user.RequireChild("missing", fieldString)
	require.ErrorIs(t, err, ErrNotFound)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "child 'missing' of type field.string not found in User", err.Error())

	assert.Len(t, user.ChildrenOf(registry.NewTypeID("field", "*")), 2)

	table, ok := age.FindInherited("dbTable", attrString)
	require.True(t, ok)
	assert.Equal(t, "users", table.Value())
}

func TestNode_SetValue(t *testing.T) {
	l := newTestLoader(t)
	enum, err := constraint.NewEnumConstraint("bool", "", constraint.IsType(attrBoolean),
		[]string{"true", "false"}, true)
	require.NoError(t, err)
	require.NoError(t, l.Engine().AddValidation(enum))

	field, err := l.NewNode(fieldString, "email")
	require.NoError(t, err)

	_, err = l.Add(field, attrBoolean, "required", WithValue("maybe"))
	require.ErrorIs(t, err, constraint.ErrValidationFailed)

	required, err := l.Add(field, attrBoolean, "required", WithValue("true"))
	require.NoError(t, err)

	assert.ErrorIs(t, required.SetValue("nope"), constraint.ErrValidationFailed)
	assert.Equal(t, "true", required.Value())
	assert.NoError(t, required.SetValue("false"))
	assert.Equal(t, "false", required.Value())
}

func TestNode_Validate(t *testing.T) {
	l := newTestLoader(t)
	user, err := l.NewNode(objectPojo, "User")
	require.NoError(t, err)
	email, err := l.Add(user, fieldString, "email")
	require.NoError(t, err)

	err = user.Validate()
	require.ErrorIs(t, err, ErrMissingChild)

	var missing []*MissingChildError
	for _, e := range err.(interface{ Unwrap() []error }).Unwrap() {
		var mc *MissingChildError
		require.ErrorAs(t, e, &mc)
		missing = append(missing, mc)
	}
	require.Len(t, missing, 2)
	assert.Equal(t, "User", missing[0].Path)
	assert.True(t, missing[0].Requirement.IsWildcardName())
	assert.Equal(t, "User/email", missing[1].Path)
	assert.Equal(t, "maxLength", missing[1].Requirement.Name)
	assert.Contains(t, missing[1].Error(), "required attribute 'maxLength' of type int")

	_, err = l.Add(user, keyPrimary, "pk")
	require.NoError(t, err)
	_, err = l.Add(email, registry.NewTypeID("attr", "int"), "maxLength", WithValue(255))
	require.NoError(t, err)
	assert.NoError(t, user.Validate())
}

func TestNode_Walk(t *testing.T) {
	l := newTestLoader(t)
	user, err := l.NewNode(objectPojo, "User")
	require.NoError(t, err)
	email, err := l.Add(user, fieldString, "email")
	require.NoError(t, err)
	_, err = l.Add(email, attrString, "pattern")
	require.NoError(t, err)
	_, err = l.Add(user, fieldInt, "age")
	require.NoError(t, err)

	var paths []string
	require.NoError(t, user.Walk(func(n *Node) error {
		paths = append(paths, n.Path())
		return nil
	}))
	assert.Equal(t, []string{"User", "User/email", "User/email/pattern", "User/age"}, paths)

	stop := errors.New("stop")
	visited := 0
	err = user.Walk(func(n *Node) error {
		visited++
		if n.Name() == "email" {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 2, visited)
	assert.Equal(t, "field.string[User/email]", email.String())
}
