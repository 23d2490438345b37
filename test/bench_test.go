package test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/Cyriaque-TONNERRE/XmlRpcNg/client"
	"github.com/Cyriaque-TONNERRE/XmlRpcNg/codec"
	"github.com/Cyriaque-TONNERRE/XmlRpcNg/message"
	"github.com/Cyriaque-TONNERRE/XmlRpcNg/value"
)

func benchRequest() *message.Request {
	inner := value.NewStruct()
	inner.Set("depth", value.NewInt(2))
	inner.Set("flag", value.NewBool(true))
	return &message.Request{
		Method: "examples.getStateName",
		Params: []value.Value{
			value.NewInt(23),
			value.NewString("with <markup> & entities"),
			value.NewArray(value.NewDouble(3.14159), inner),
		},
	}
}

var benchResponse = []byte(`<?xml version="1.0"?><methodResponse><params><param><value><string>South Dakota</string></value></param></params></methodResponse>`)

func BenchmarkEncodeRequest(b *testing.B) {
	req := benchRequest()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := codec.EncodeRequest(req); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDecodeResponse(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := codec.DecodeResponse(benchResponse); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkRoundTrip(b *testing.B) {
	req := benchRequest()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		data, err := codec.EncodeRequest(req)
		if err != nil {
			b.Fatal(err)
		}
		if _, err := codec.DecodeResponse(benchResponse); err != nil {
			b.Fatal(err)
		}
		_ = data
	}
}

func BenchmarkSerialCall(b *testing.B) {
	srv := httptest.NewServer(stateNameServer("South Dakota"))
	defer srv.Close()

	c := client.New(srv.URL)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var state string
		if err := c.Call(ctx, "examples.getStateName", &state, 23); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkConcurrentCall(b *testing.B) {
	srv := httptest.NewServer(stateNameServer("South Dakota"))
	defer srv.Close()

	c := client.New(srv.URL)
	ctx := context.Background()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			var state string
			if err := c.Call(ctx, "examples.getStateName", &state, 23); err != nil {
				b.Fatal(err)
			}
		}
	})
}
