package predictor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	tf "github.com/wamuir/graft/tensorflow"
)

func TestColumnValue(t *testing.T) {
	tcs := []struct {
		name    string
		dtype   tf.DataType
		col     []any
		want    any
		wantErr bool
	}{
		{
			name:  "float scalars",
			dtype: tf.Float,
			col:   []any{1.5, 2.5},
			want:  []float32{1.5, 2.5},
		},
		{
			name:  "float vectors",
			dtype: tf.Float,
			col:   []any{[]any{1.0, 2.0}, []any{3.0, 4.0}},
			want:  [][]float32{{1, 2}, {3, 4}},
		},
		{
			name:  "strings",
			dtype: tf.String,
			col:   []any{"a", "b"},
			want:  []string{"a", "b"},
		},
		{
			name:  "int64 from json numbers",
			dtype: tf.Int64,
			col:   []any{1.0, 2.0},
			want:  []int64{1, 2},
		},
		{
			name:    "fractional number for int64",
			dtype:   tf.Int64,
			col:     []any{1.0, 1.7},
			wantErr: true,
		},
		{
			name:    "fractional number for int32",
			dtype:   tf.Int32,
			col:     []any{2.5},
			wantErr: true,
		},
		{
			name:  "bools",
			dtype: tf.Bool,
			col:   []any{true, false},
			want:  []bool{true, false},
		},
		{
			name:    "empty column",
			dtype:   tf.Float,
			col:     nil,
			wantErr: true,
		},
		{
			name:    "type mismatch",
			dtype:   tf.Float,
			col:     []any{"not a number"},
			wantErr: true,
		},
		{
			name:    "mixed scalar and list",
			dtype:   tf.Float,
			col:     []any{[]any{1.0}, 2.0},
			wantErr: true,
		},
		{
			name:    "missing value",
			dtype:   tf.String,
			col:     []any{"a", nil},
			wantErr: true,
		},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			got, err := columnValue(tc.dtype, tc.col)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestTensorRows(t *testing.T) {
	rows, err := tensorRows([]float32{1, 2, 3})
	assert.NoError(t, err)
	assert.Equal(t, []any{float32(1), float32(2), float32(3)}, rows)

	rows, err = tensorRows([][]float32{{1, 2}, {3, 4}})
	assert.NoError(t, err)
	assert.Equal(t, []any{[]float32{1, 2}, []float32{3, 4}}, rows)

	_, err = tensorRows(float32(1))
	assert.Error(t, err)
}
