// Package jsoncodec регистрирует gRPC-кодек, передающий сообщения в JSON.
//
// Клиенты выбирают его через grpc.CallContentSubtype(Name); сервер находит
// кодек по content-subtype запроса автоматически.
package jsoncodec

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// Name используется как content-subtype: application/grpc+json.
const Name = "json"

func init() {
	encoding.RegisterCodec(Codec{})
}

// Codec реализует encoding.Codec поверх encoding/json.
type Codec struct{}

func (Codec) Marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("jsoncodec: marshal %T: %w", v, err)
	}
	return data, nil
}

func (Codec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("jsoncodec: unmarshal %T: %w", v, err)
	}
	return nil
}

func (Codec) Name() string {
	return Name
}
