package cmd

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"dase/internal/codec"
	"dase/internal/config"
	"dase/internal/element"
	"dase/internal/orm"
	"dase/internal/registry"
	"dase/internal/repository/sqlite"
	"dase/internal/serialization"
	"dase/internal/service"
)

// app is the composition root shared by the commands
type app struct {
	settings     *config.Settings
	settingsPath string
	registry     *registry.Registry
	engine       *serialization.Engine
	configs      *config.Manager
	codecs       codec.Set
}

func newApp() (*app, error) {
	var (
		settings *config.Settings
		path     string
		err      error
	)
	if rootOpt.cfgFile != "" {
		settings, path, err = config.LoadFromPath(rootOpt.cfgFile)
	} else {
		settings, path, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if rootOpt.culture != "" {
		settings.Culture = rootOpt.culture
	}
	if rootOpt.strict {
		settings.Serialization.StrictMode = true
	}
	if rootOpt.dbPath != "" {
		settings.Database.Path = rootOpt.dbPath
	}
	if path != "" {
		logrus.Debugf("using settings %s", path)
	}

	reg, err := orm.NewRegistry()
	if err != nil {
		return nil, err
	}
	engine := serialization.New(reg, settings.EngineOptions()...)
	orm.Install(engine)

	return &app{
		settings:     settings,
		settingsPath: path,
		registry:     reg,
		engine:       engine,
		configs:      config.NewManager(config.OSFileSystem{}),
		codecs: codec.NewSet(
			codec.NewXMLCodec(engine),
			codec.NewJSONCodec(reg),
			codec.NewYAMLCodec(reg),
		),
	}, nil
}

// provider builds the metadata provider with the type table that applies
// to contextPath
func (a *app) provider(ctx context.Context, contextPath string) (*orm.MetadataProvider, error) {
	abs, err := filepath.Abs(contextPath)
	if err != nil {
		return nil, err
	}
	types, err := a.configs.ORMTypes(ctx, abs)
	if err != nil {
		return nil, errors.Wrap(err, "resolve ORM types")
	}
	return orm.NewMetadataProvider(a.registry, types), nil
}

// service opens the document store. The returned function closes it.
func (a *app) service(ctx context.Context) (*service.DocumentService, func(), error) {
	repo, err := sqlite.New(a.settings.Database.Path, sqlite.WithBusyTimeout(a.settings.Database.BusyTimeout.Duration()))
	if err != nil {
		return nil, nil, err
	}
	wd, err := filepath.Abs(".")
	if err != nil {
		repo.Close()
		return nil, nil, err
	}
	provider, err := a.provider(ctx, wd)
	if err != nil {
		repo.Close()
		return nil, nil, err
	}

	bus := service.NewEventBus()
	events := make(chan service.Event, 16)
	bus.Subscribe(events)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			logrus.Debugf("%s %s %s", ev.Type, ev.DocumentID, ev.Name)
		}
	}()

	svc := service.NewDocumentService(a.engine, repo, a.codecs, provider, bus)
	return svc, func() {
		repo.Close()
		close(events)
		<-done
	}, nil
}

// formatOf maps a file name to a codec format
func formatOf(path, override string) string {
	if override != "" {
		return override
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	}
	return "xml"
}

// readTree parses the file at path in its format
func (a *app) readTree(path, format string) (*element.Element, error) {
	c, err := a.codecs.Lookup(formatOf(path, format))
	if err != nil {
		return nil, err
	}
	f, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return c.Parse(f)
}

// writeTree exports root to path in its format
func (a *app) writeTree(root *element.Element, path, format string) error {
	c, err := a.codecs.Lookup(formatOf(path, format))
	if err != nil {
		return err
	}
	f, err := createOutput(path)
	if err != nil {
		return err
	}
	if err := c.Export(root, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
