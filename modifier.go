package mrchain

// ConfigModifier is a deferred mutation of a configuration overlay, applied
// at submission time before the job object is built.
type ConfigModifier func(c *Config)

// JobModifier is a deferred mutation of a concrete job object, applied at
// submission time after the job is built.
type JobModifier func(j Job) error

// Param sets a configuration property on the stage that follows it:
//
//	chain.WithConf(mrchain.Param("mapred.compress", "true"))
func Param(key, value string) ConfigModifier {
	return func(c *Config) {
		c.Set(key, value)
	}
}

// NumReduceTasks sets the reduce task count on the job of the stage that
// follows it.
func NumReduceTasks(n int) JobModifier {
	return func(j Job) error {
		j.SetReducers(n)
		return nil
	}
}

// JobProperty sets a generic property on the job of the stage that follows
// it, e.g. a partitioner class name.
func JobProperty(key, value string) JobModifier {
	return func(j Job) error {
		j.SetConf(key, value)
		return nil
	}
}
