// Copyright 2026 The Petrel Authors
// SPDX-License-Identifier: Apache-2.0

// Package content builds rich message content for outbound messages.
//
// [Builder] assembles a [wire.Block] tree with chained calls:
//
//	block := content.New().
//		Text("deploy finished in ").
//		Bold(content.Text("41s")).
//		Text(", details: ").
//		Link("https://ci.example.net/run/8821", content.Text("run 8821")).
//		Block()
//
// Nested formatting takes another Builder, so any composition the
// block tree allows can be written inline:
//
//	content.New().Bold(content.New().Italic(content.Text("very")).Text(" important"))
//
// [Builder.Block] flattens the builder into a single block: a lone
// child is returned directly, several children are wrapped in a
// container. [FromBlock] reverses that, so received content can be
// unwrapped, extended, and sent back.
//
// [FromMarkdown] converts CommonMark with GitHub extensions (tables,
// strikethrough, autolinks, task lists) into a block tree, keeping the
// markdown source as the plain-text fallback of the root block.
package content
