package logging

// NopLogger discards everything. It keeps tests quiet without wiring a real
// backend.
type NopLogger struct{}

func (NopLogger) Init() {}

func (NopLogger) Debug(Category, SubCategory, string, map[ExtraKey]any) {}

func (NopLogger) Debugf(string, ...any) {}

func (NopLogger) Info(Category, SubCategory, string, map[ExtraKey]any) {}

func (NopLogger) Infof(string, ...any) {}

func (NopLogger) Warn(Category, SubCategory, string, map[ExtraKey]any) {}

func (NopLogger) Warnf(string, ...any) {}

func (NopLogger) Error(Category, SubCategory, string, map[ExtraKey]any) {}

func (NopLogger) Errorf(string, ...any) {}

func (NopLogger) Fatal(Category, SubCategory, string, map[ExtraKey]any) {}

func (NopLogger) Fatalf(string, ...any) {}
