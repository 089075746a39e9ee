package pools

import (
	"bytes"
	"sync"
	"testing"
)

func TestBufferPool_GetIsEmpty(t *testing.T) {
	p := NewBufferPool()

	buf := p.Get()
	buf.WriteString("graph")
	p.Put(buf)

	got := p.Get()
	if got.Len() != 0 {
		t.Errorf("Get returned %d bytes, want an empty buffer", got.Len())
	}
}

func TestBufferPool_DropsOversized(t *testing.T) {
	p := NewBufferPool()
	big := bytes.NewBuffer(make([]byte, 0, MaxPooled+1))
	p.Put(big)
	p.Put(nil)

	if got := p.Get(); got == big {
		t.Error("oversized buffer was pooled")
	}
}

func TestBufferPool_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			buf := GetBuffer()
			defer PutBuffer(buf)
			for range i {
				buf.WriteByte('x')
			}
			if buf.Len() != i {
				t.Errorf("buffer shared between goroutines: len %d, want %d", buf.Len(), i)
			}
		}(i)
	}
	wg.Wait()
}

func BenchmarkBufferPool(b *testing.B) {
	payload := make([]byte, 64<<10)
	for b.Loop() {
		buf := GetBuffer()
		buf.Write(payload)
		PutBuffer(buf)
	}
}
