package importer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func TestExtractPlainText(t *testing.T) {
	im := New(0, zap.NewNop())

	text, err := im.Extract("notes.MD", strings.NewReader("# Plan\n\n- ship it\n"))
	require.NoError(t, err)
	assert.Equal(t, "# Plan\n\n- ship it", text)

	text, err = im.Extract("list.csv", strings.NewReader("title,priority\nBuy milk,high\nCall mom\n"))
	require.NoError(t, err)
	assert.Equal(t, "title\tpriority\nBuy milk\thigh\nCall mom", text)
}

func TestExtractXLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "Task"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "Due"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "Report"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", "Friday"))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	text, err := New(0, zap.NewNop()).Extract("plan.xlsx", buf)
	require.NoError(t, err)
	assert.Equal(t, "## Sheet1\nTask\tDue\nReport\tFriday", text)
}

func TestExtractErrors(t *testing.T) {
	im := New(16, zap.NewNop())

	_, err := im.Extract("photo.png", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = im.Extract("big.txt", strings.NewReader(strings.Repeat("a", 17)))
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = im.Extract("blank.txt", strings.NewReader("   \n"))
	assert.ErrorIs(t, err, ErrEmptyDocument)

	_, err = im.Extract("broken.pdf", strings.NewReader("not a pdf"))
	assert.Error(t, err)

	_, err = im.Extract("broken.csv", strings.NewReader("a,\"b\nc"))
	assert.Error(t, err)
}

func TestSupported(t *testing.T) {
	for _, name := range []string{"a.pdf", "b.XLSX", "c.csv", "d.txt", "e.md"} {
		assert.True(t, Supported(name), name)
	}
	for _, name := range []string{"a.doc", "b", "c.xls"} {
		assert.False(t, Supported(name), name)
	}
}
