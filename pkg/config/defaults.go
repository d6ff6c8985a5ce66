package config

const (
	defaultFamily      = "qwen"
	defaultVisionModel = "qwen3-vl-plus"

	defaultDashScopeEndpoint = "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions"
	defaultAlternateEndpoint = "https://www.dmxapi.cn/v1/chat/completions"
	defaultGeminiEndpoint    = "https://generativelanguage.googleapis.com/v1beta"

	defaultStorageDriver = "sqlite"
	defaultMaxHistory    = 20

	defaultAPIListen = ":8765"

	defaultEventStreamProvider = "nop"
	defaultEventStreamTopic    = "mathpad.history"

	defaultCanvasWidth  = 1024
	defaultCanvasHeight = 768
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Model: ModelConfig{
			Family: defaultFamily,
			Vision: defaultVisionModel,
		},
		Endpoints: EndpointsConfig{
			DashScope: defaultDashScopeEndpoint,
			Alternate: defaultAlternateEndpoint,
			Gemini:    defaultGeminiEndpoint,
		},
		Storage: StorageConfig{
			Driver:     defaultStorageDriver,
			MaxHistory: defaultMaxHistory,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		EventStream: EventStreamConfig{
			Provider: defaultEventStreamProvider,
			Topic:    defaultEventStreamTopic,
		},
		Canvas: CanvasConfig{
			Width:  defaultCanvasWidth,
			Height: defaultCanvasHeight,
		},
	}
}
