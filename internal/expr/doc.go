// Package expr evaluates flow attribute expressions.
//
// Configuration strings use the `${{ expression }}` template syntax. A
// template is compiled into an HCL template expression: literal text is
// escaped so that `${` and `%{` in shell snippets stay literal, and every
// `${{ ... }}` becomes an HCL interpolation. Expressions therefore share the
// HCL native grammar, for example:
//
//	${{ images.image_a.ref }}
//	${{ needs.batch_a.outputs.path }}
//	${{ upper(matrix.os) }}
//	${{ success("batch_a") }}
//
// A template made of a single interpolation and nothing else evaluates to the
// native value (number, bool, list) instead of a string.
//
// Evaluation is a pure function of a Scope and an expression. The Scope is an
// immutable set of root names (flow, env, volumes, images, defaults, matrix,
// needs); With* methods return copies.
package expr
