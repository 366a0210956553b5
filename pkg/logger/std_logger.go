package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// configuration :
// Provides a way to configure the way logs are displayed both in terms of
// level and in terms of the machine executing the logger.
//
// The `AppName` describes a string for the name of the application using
// the logger.
// The default value is "xnova".
//
// The `Environment` allows to specify which configuration is used by the
// application executing the logger. Typical values include `production`
// and `development`.
// The default value is "development".
//
// The `ForceLocal` allows to make sure that the instance ID assigned to
// this logger will be "local" no matter what the value provided by the
// runtime is.
// The default value is `false`.
//
// The `Level` is the minimum severity of a message in order for it to be
// displayed.
// The default value is "info".
//
// The `Buffer` defines the size of the internal queue of messages. The
// logger does not write messages directly: they are accumulated in this
// buffer and written by a dedicated routine, which allows to absorb some
// bursts without blocking the callers.
// The default value is 500.
//
// The `Colors` allows to disable the terminal color codes, which is useful
// when the output is redirected to a file.
// The default value is `true`.
type configuration struct {
	AppName     string
	Environment string
	ForceLocal  bool
	Level       Severity
	Buffer      int
	Colors      bool
}

// traceMessage :
// Describes a message enqueued by the logger.
type traceMessage struct {
	level   Severity
	module  string
	content string
	at      time.Time
}

// StdLogger :
// Logger forwarding messages to an output stream (the standard output by
// default). Messages are placed in a buffered channel and written by a
// single routine so that callers are only blocked when the buffer is full.
//
// The `config` holds the settings parsed from the configuration.
//
// The `instanceID` identifies the running instance of the application.
//
// The `publicIP` is the public address of the machine, "localhost" when
// none is known.
//
// The `out` is the stream receiving the formatted messages.
//
// The `logChannel` receives the messages to write.
//
// The `closed` indicates whether `Release` has been called. It is protected
// by the `locker`.
//
// The `waiter` allows `Release` to wait for the writing routine to drain
// the remaining messages.
type StdLogger struct {
	config     configuration
	instanceID string
	publicIP   string
	out        io.Writer
	logChannel chan traceMessage
	closed     bool
	locker     sync.Mutex
	waiter     sync.WaitGroup
}

// parseConfiguration :
// Used to retrieve the parameters to apply to the logger from the
// configuration. Defaults are provided for every value.
//
// Returns the parsed configuration.
func parseConfiguration() configuration {
	config := configuration{
		AppName:     "xnova",
		Environment: "development",
		ForceLocal:  false,
		Level:       Info,
		Buffer:      500,
		Colors:      true,
	}

	if viper.IsSet("Logger.Name") {
		config.AppName = viper.GetString("Logger.Name")
	}
	if viper.IsSet("Logger.Environment") {
		config.Environment = viper.GetString("Logger.Environment")
	}
	if viper.IsSet("Logger.ForceLocal") {
		config.ForceLocal = viper.GetBool("Logger.ForceLocal")
	}
	if viper.IsSet("Logger.Level") {
		config.Level = ParseSeverity(viper.GetString("Logger.Level"))
	}
	if viper.IsSet("Logger.Buffer") {
		config.Buffer = viper.GetInt("Logger.Buffer")
	}
	if viper.IsSet("Logger.Colors") {
		config.Colors = viper.GetBool("Logger.Colors")
	}

	if config.Buffer < 0 {
		config.Buffer = 0
	}

	return config
}

// NewStdLogger :
// Creates a logger writing to the standard output. The configuration is
// read from viper right away.
//
// The `instanceID` identifies the running instance. It is replaced by
// "local" when empty or when `Logger.ForceLocal` is set.
//
// The `publicIP` is the address of the machine, "localhost" when empty.
//
// Returns the created logger.
func NewStdLogger(instanceID string, publicIP string) *StdLogger {
	return NewWriterLogger(os.Stdout, instanceID, publicIP)
}

// NewWriterLogger :
// Similar to `NewStdLogger` but writes to the provided stream.
func NewWriterLogger(out io.Writer, instanceID string, publicIP string) *StdLogger {
	config := parseConfiguration()

	log := &StdLogger{
		config:     config,
		instanceID: instanceID,
		publicIP:   publicIP,
		out:        out,
		logChannel: make(chan traceMessage, config.Buffer),
	}

	if len(log.instanceID) == 0 || config.ForceLocal {
		log.instanceID = "local"
	}
	if len(log.publicIP) == 0 {
		log.publicIP = "localhost"
	}

	log.waiter.Add(1)
	go log.performLogging()

	return log
}

// Release :
// Stops the writing routine after all the messages posted so far have
// been written. Messages traced after this call are dropped.
func (log *StdLogger) Release() {
	log.locker.Lock()
	if log.closed {
		log.locker.Unlock()
		return
	}
	log.closed = true
	close(log.logChannel)
	log.locker.Unlock()

	log.waiter.Wait()
}

// Trace :
// Enqueues the message for writing if its severity is at least the
// configured level. The call blocks only when the buffer is full.
//
// The `level` describes the severity of the message to log.
//
// The `module` identifies the component producing the message.
//
// The `message` describes the content of the message to log.
func (log *StdLogger) Trace(level Severity, module string, message string) {
	if level < log.config.Level {
		return
	}

	trace := traceMessage{
		level:   level,
		module:  module,
		content: message,
		at:      time.Now(),
	}

	log.locker.Lock()
	defer log.locker.Unlock()
	if !log.closed {
		log.logChannel <- trace
	}
}

// performLogging :
// Active loop writing the messages until the channel is closed.
func (log *StdLogger) performLogging() {
	defer log.waiter.Done()

	for trace := range log.logChannel {
		log.performSingleLog(trace)
	}
}

// performSingleLog :
// Formats and writes a single message. The layout is:
// `[app] [instance] date [level] [module] content`.
func (log *StdLogger) performSingleLog(trace traceMessage) {
	colored := log.config.Colors

	out := decorate(log.config.AppName, Magenta, colored, true)
	out += " " + decorate(log.instanceID, Magenta, colored, true)
	out += " " + decorate(trace.at.Format("2006-01-02 15:04:05"), Magenta, colored, false)
	out += " " + decorate(trace.level.Name(), trace.level.Color(), colored, true)

	if len(trace.module) > 0 {
		out += " " + decorate(trace.module, Cyan, colored, true)
	}

	out += " " + trace.content

	fmt.Fprintln(log.out, out)
}
