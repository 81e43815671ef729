package llm

import "context"

// MockClient permite correr el servicio sin API key y escribir tests sin
// llamar a un LLM real. Se selecciona una sola vez al arranque.
type MockClient struct {
	Response  string
	Tokens    []string
	Embedding []float32
	Err       error
	StreamErr error

	LastSystem  string
	LastHistory []Message
}

func NewMockClient() *MockClient {
	return &MockClient{
		Response:  "This is a canned coach reply. Configure LLM_API_KEY to talk to a real model.",
		Tokens:    []string{"This is a canned ", "coach reply."},
		Embedding: make([]float32, 1536),
	}
}

func (m *MockClient) Generate(_ context.Context, system string, history []Message) (string, error) {
	m.LastSystem = system
	m.LastHistory = history
	return m.Response, m.Err
}

func (m *MockClient) GenerateStream(_ context.Context, system string, history []Message, onToken func(token string) error) error {
	m.LastSystem = system
	m.LastHistory = history
	if m.Err != nil {
		return m.Err
	}
	for _, token := range m.Tokens {
		if err := onToken(token); err != nil {
			return err
		}
	}
	return m.StreamErr
}

func (m *MockClient) Embed(_ context.Context, _ string) ([]float32, error) {
	return m.Embedding, m.Err
}
