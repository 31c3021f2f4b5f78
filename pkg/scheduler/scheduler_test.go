package scheduler

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hayasaka-lab/go-bilingual-agent/pkg/bilingual"
)

func makeLines(n int) []bilingual.SourceLine {
	lines := make([]bilingual.SourceLine, n)
	for i := range lines {
		lines[i] = bilingual.SourceLine{Index: i + 1, Text: fmt.Sprintf("第%d行", i+1)}
	}
	return lines
}

func TestSchedule(t *testing.T) {
	t.Run("无缝且不重叠地覆盖全文", func(t *testing.T) {
		lines := makeLines(25)
		batches, err := Schedule(lines, 10, 3)
		require.NoError(t, err)
		require.Len(t, batches, 3)

		assert.Equal(t, 1, batches[0].Start())
		assert.Equal(t, 10, batches[0].End())
		assert.Equal(t, 11, batches[1].Start())
		assert.Equal(t, 20, batches[1].End())
		assert.Equal(t, 21, batches[2].Start())
		assert.Equal(t, 25, batches[2].End())

		total := 0
		for _, b := range batches {
			total += len(b.Lines)
		}
		assert.Equal(t, 25, total)
	})

	t.Run("首批次不携带上下文", func(t *testing.T) {
		batches, err := Schedule(makeLines(25), 10, 3)
		require.NoError(t, err)

		assert.Equal(t, 0, batches[0].ContextLines)
		assert.Equal(t, 3, batches[1].ContextLines)
		assert.Equal(t, 3, batches[2].ContextLines)
	})

	t.Run("不足一个批次产生单批次", func(t *testing.T) {
		batches, err := Schedule(makeLines(4), 10, 3)
		require.NoError(t, err)
		require.Len(t, batches, 1)
		assert.Equal(t, 4, len(batches[0].Lines))
	})

	t.Run("空文档不产生批次", func(t *testing.T) {
		batches, err := Schedule(nil, 10, 3)
		require.NoError(t, err)
		assert.Nil(t, batches)
	})

	t.Run("批次大小非法", func(t *testing.T) {
		_, err := Schedule(makeLines(5), 0, 3)
		require.ErrorIs(t, err, ErrInvalidBatchSize)

		_, err = Schedule(makeLines(5), -1, 3)
		require.ErrorIs(t, err, ErrInvalidBatchSize)
	})

	t.Run("空白行保留在批次内", func(t *testing.T) {
		lines := makeLines(3)
		lines[1].Text = ""
		batches, err := Schedule(lines, 10, 0)
		require.NoError(t, err)
		require.Len(t, batches, 1)

		assert.Len(t, batches[0].Lines, 3)
		assert.Len(t, batches[0].TranslatableLines(), 2)
	})
}

func TestResplit(t *testing.T) {
	t.Run("对半切分", func(t *testing.T) {
		lines := makeLines(50)
		batches, err := Schedule(lines, 50, 3)
		require.NoError(t, err)

		halves := Resplit(batches[0])
		require.Len(t, halves, 2)
		assert.Len(t, halves[0].Lines, 25)
		assert.Len(t, halves[1].Lines, 25)
		assert.Equal(t, 1, halves[0].Start())
		assert.Equal(t, 26, halves[1].Start())
	})

	t.Run("切分后不携带上下文", func(t *testing.T) {
		b := Batch{Index: 2, Lines: makeLines(10), ContextLines: 3}
		halves := Resplit(b)
		require.Len(t, halves, 2)
		assert.Equal(t, 0, halves[0].ContextLines)
		assert.Equal(t, 0, halves[1].ContextLines)
	})

	t.Run("奇数行数", func(t *testing.T) {
		halves := Resplit(Batch{Lines: makeLines(7)})
		require.Len(t, halves, 2)
		assert.Len(t, halves[0].Lines, 3)
		assert.Len(t, halves[1].Lines, 4)
	})

	t.Run("单行无法继续切分", func(t *testing.T) {
		assert.Nil(t, Resplit(Batch{Lines: makeLines(1)}))
	})
}
