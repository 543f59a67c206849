// Golang port of CodeLive
// Copyright (C) 2025-2026 Jakob Ackermann <das7pad@outlook.com>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package editor

import (
	"sync"

	"github.com/das7pad/codelive/pkg/sharedTypes"
)

// Buffer is the text the widget displays. Any capability-equivalent editing
// widget can adapt to it; SetLines must swap the full content without firing
// the widgets change detection back into the reconciler.
type Buffer interface {
	Lines() sharedTypes.Lines
	SetLines(lines sharedTypes.Lines)
}

// MemoryBuffer is a plain in-memory Buffer, used headless and in tests.
type MemoryBuffer struct {
	mu    sync.Mutex
	lines sharedTypes.Lines
}

func NewMemoryBuffer(snapshot sharedTypes.Snapshot) *MemoryBuffer {
	return &MemoryBuffer{lines: snapshot.ToLines()}
}

func (b *MemoryBuffer) Lines() sharedTypes.Lines {
	b.mu.Lock()
	defer b.mu.Unlock()
	lines := make(sharedTypes.Lines, len(b.lines))
	copy(lines, b.lines)
	return lines
}

func (b *MemoryBuffer) SetLines(lines sharedTypes.Lines) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = lines
}

func (b *MemoryBuffer) Snapshot() sharedTypes.Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lines.ToSnapshot()
}
