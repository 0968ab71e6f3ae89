// Package constraint enforces the rules that decide whether a metadata node may gain a
// child.
//
// Two kinds of rules are registered on an Engine in addition to the child requirements
// declared in the type registry. Placement constraints use an open policy: they only
// restrict parents they apply to, and one allowing constraint is enough. Validation
// constraints use a closed policy: every constraint that applies to the child must pass.
// Both are evaluated in registration order.
package constraint
