package arguments

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

// AppMetadata :
// Describes some properties used to identify the current instance of
// the application. Most of these information are used by the logger
// to provide some context to messages and to distinguish among the
// running instances of the server.
//
// The `PublicIPv4` corresponds to the IP address of the machine that
// is executing the server.
// The default value is "localhost".
//
// The `InstanceID` describes an identifier of the current instance of
// the server. It is generated at runtime and changes with each start.
//
// The `Environment` is the name of the configuration used to start the
// application (`development`, `production`, etc.).
// The default value is "unknown".
//
// The `Port` specifies on which port the end points defined by the app
// can be accessed.
// The default value is 3000.
type AppMetadata struct {
	PublicIPv4  string `json:"public_ipv4"`
	InstanceID  string `json:"instance_id"`
	Environment string `json:"environment"`
	Port        int    `json:"port"`
}

// ErrInvalidConfiguration :
// Indicates that the configuration file could not be read.
var ErrInvalidConfiguration = errors.New("could not parse input configuration")

// Setup :
// Prepares viper to read values from the environment. Any key such
// as `Game.Speed` can be overridden with `ENV_GAME_SPEED`.
func Setup() {
	viper.SetEnvPrefix("ENV")
	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)
	viper.AutomaticEnv()
}

// Parse :
// Used to parse the app configuration and produce the corresponding
// metadata. The configuration file is searched in the working dir
// and in the `data/config` directory.
//
// The `configFile` is the name of the configuration file without its
// extension. When empty only the environment and the defaults are
// used.
//
// Returns the application's properties along with any error.
func Parse(configFile string) (AppMetadata, error) {
	Setup()

	metadata := AppMetadata{
		PublicIPv4:  "localhost",
		InstanceID:  uuid.New().String(),
		Environment: "unknown",
		Port:        3000,
	}

	if len(configFile) > 0 {
		viper.SetConfigName(configFile)
		viper.AddConfigPath(".")
		viper.AddConfigPath("data/config")

		err := viper.ReadInConfig()
		if err != nil {
			return metadata, fmt.Errorf("%w \"%s\" (err: %v)", ErrInvalidConfiguration, configFile, err)
		}

		metadata.Environment = configFile
	}

	if viper.IsSet("App.Port") {
		metadata.Port = viper.GetInt("App.Port")
	}
	if viper.IsSet("App.PublicIP") {
		metadata.PublicIPv4 = viper.GetString("App.PublicIP")
	}

	return metadata, nil
}
