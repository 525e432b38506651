package codec

import "gopkg.in/yaml.v3"

// NewYAMLCodec creates a new codec using yaml encoding
func NewYAMLCodec() Codec {
	return &yamlCodecImpl{}
}

// yamlCodecImpl implements the Codec interface using yaml encoding
type yamlCodecImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see codec.Codec)
// --------------------------------------------------------------------------

func (y yamlCodecImpl) Name() string {
	return "yaml"
}

func (y yamlCodecImpl) Marshal(v any) ([]byte, error) {
	return yaml.Marshal(v)
}

func (y yamlCodecImpl) Unmarshal(b []byte, v any) error {
	return yaml.Unmarshal(b, v)
}
