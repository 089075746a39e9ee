package logging

import (
	"time"
)

func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Domain fields

func Component(name string) Field {
	return String("component", name)
}

func Operation(op string) Field {
	return String("operation", op)
}

func Latency(d time.Duration) Field {
	return Duration("latency", d)
}

func Category(name string) Field {
	return String("category", name)
}

func SourceIP(ip string) Field {
	return String("source_ip", ip)
}

func NodeID(id string) Field {
	return String("node_id", id)
}

func Records(n int) Field {
	return Int("records", n)
}

func Nodes(n int) Field {
	return Int("nodes", n)
}

func Links(n int) Field {
	return Int("links", n)
}

func Dimensions(width, height float64) Field {
	return Any("dimensions", map[string]float64{"width": width, "height": height})
}

func PcapID(id string) Field {
	return String("pcap_id", id)
}

func RequestID(id string) Field {
	return String("request_id", id)
}

func Path(p string) Field {
	return String("path", p)
}
