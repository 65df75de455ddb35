package helpers

import (
	"os"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// FileExists checks if a file exists and is not a directory
func FileExists(filename string, logger *zap.SugaredLogger) bool {
	info, err := os.Stat(filename)
	if err != nil {
		if !os.IsNotExist(err) && logger != nil {
			logger.Infof("Error checking file %s for existence: %s", filename, err)
		}
		return false
	}

	return !info.IsDir()
}

// EncodeBSON marshals any BSON-taggable value.
func EncodeBSON(value interface{}) ([]byte, error) {
	data, err := bson.Marshal(value)
	if err != nil {
		return nil, errors.Wrap(err, "error encoding BSON")
	}
	return data, nil
}

// DecodeBSON unmarshals data into out, which must be a pointer.
func DecodeBSON(data []byte, out interface{}) error {
	if err := bson.Unmarshal(data, out); err != nil {
		return errors.Wrap(err, "error decoding BSON")
	}
	return nil
}
