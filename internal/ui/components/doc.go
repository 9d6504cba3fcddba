// Copyright (c) 2025 The Gandalf Chatbot Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the visual UI components for the Gandalf TUI.
//
// The centerpiece is InputBar, the chat input controller: a fully controlled
// text field plus send control whose enablement, placeholder, and label all
// derive from the owner-supplied Props. The remaining components (Header,
// StatusBar, MessageBubble, Welcome, CodeBlock) are stateless renderers the
// chat page composes into its view.
package components
