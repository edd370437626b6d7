// Package remote wraps handles to objects living in the worker. Public fields of the remote
// object are read and written through the bridge; any other name is bookkeeping kept on the
// proxy itself.
package remote

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/boofbridge/bridge"
)

// Entry point methods the proxies rely on.
const (
	methodGetPublicFields = "getPublicFields"
	methodToString        = "toString"
)

var (
	// ErrNoSuchAttribute is returned when reading a name that is neither a remote field nor a
	// local attribute.
	ErrNoSuchAttribute = errors.New("no such attribute")
	// ErrNotConfig is returned when a configuration proxy is requested for an object that is not
	// a configuration.
	ErrNotConfig = errors.New("not a configuration object")
)

// Object is a proxy for a remote object.
type Object struct {
	bridge bridge.Bridge
	handle bridge.Handle
	fields []string
	local  map[string]bridge.Value
}

// Wrap returns a proxy for h. The remote object's public field names are fetched once.
func Wrap(ctx context.Context, b bridge.Bridge, h bridge.Handle) (*Object, error) {
	v, err := b.Invoke(ctx, bridge.EntryPoint, methodGetPublicFields, bridge.HandleValue(h))
	if err != nil {
		return nil, errors.Wrapf(err, "listing fields of %v", h)
	}
	fields, err := v.AsStrings()
	if err != nil {
		return nil, errors.Wrapf(err, "listing fields of %v", h)
	}
	return &Object{bridge: b, handle: h, fields: fields, local: map[string]bridge.Value{}}, nil
}

// Handle returns the wrapped remote handle.
func (o *Object) Handle() bridge.Handle {
	return o.handle
}

// Fields returns the public field names of the remote object.
func (o *Object) Fields() []string {
	return append([]string(nil), o.fields...)
}

// HasField reports whether name is a public field of the remote object.
func (o *Object) HasField(name string) bool {
	return lo.Contains(o.fields, name)
}

// Get reads a remote field, or a local attribute if name is not a remote field.
func (o *Object) Get(ctx context.Context, name string) (bridge.Value, error) {
	if o.HasField(name) {
		return o.bridge.GetField(ctx, o.handle, name)
	}
	v, ok := o.local[name]
	if !ok {
		return bridge.Value{}, errors.Wrapf(ErrNoSuchAttribute, "%s on %v", name, o.handle)
	}
	return v, nil
}

// Set writes a remote field, or a local attribute if name is not a remote field. Proxies are
// passed to the remote side as their handles.
func (o *Object) Set(ctx context.Context, name string, value interface{}) error {
	v, err := bridge.ValueOf(unwrap(value))
	if err != nil {
		return err
	}
	if o.HasField(name) {
		return o.bridge.SetField(ctx, o.handle, name, v)
	}
	o.local[name] = v
	return nil
}

// Call invokes a method on the remote object.
func (o *Object) Call(ctx context.Context, method string, args ...interface{}) (bridge.Value, error) {
	vals, err := bridge.ValuesOf(lo.Map(args, func(a interface{}, _ int) interface{} { return unwrap(a) })...)
	if err != nil {
		return bridge.Value{}, err
	}
	return o.bridge.Invoke(ctx, o.handle, method, vals...)
}

// ToString returns the remote object's own string form.
func (o *Object) ToString(ctx context.Context) (string, error) {
	v, err := o.Call(ctx, methodToString)
	if err != nil {
		return "", err
	}
	return v.AsString()
}

func unwrap(v interface{}) interface{} {
	switch x := v.(type) {
	case *Object:
		return x.handle
	case *Config:
		return x.handle
	}
	return v
}

// Config is a proxy for a remote configuration object. Nested configurations are wrapped on
// each access and never cached.
type Config struct {
	*Object
}

// NewConfig constructs a remote configuration from its fully qualified class name.
func NewConfig(ctx context.Context, b bridge.Bridge, className string) (*Config, error) {
	h, err := b.Construct(ctx, className)
	if err != nil {
		return nil, err
	}
	return WrapConfig(ctx, b, h)
}

// WrapConfig returns a configuration proxy for h.
func WrapConfig(ctx context.Context, b bridge.Bridge, h bridge.Handle) (*Config, error) {
	if !h.Config {
		return nil, errors.Wrapf(ErrNotConfig, "%v", h)
	}
	o, err := Wrap(ctx, b, h)
	if err != nil {
		return nil, err
	}
	return &Config{Object: o}, nil
}

// Sub returns a proxy for the nested configuration held in field name.
func (c *Config) Sub(ctx context.Context, name string) (*Config, error) {
	v, err := c.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if !v.IsConfig() {
		return nil, errors.Wrapf(ErrNotConfig, "field %s of %v is %v", name, c.handle, v.Kind())
	}
	h, err := v.AsHandle()
	if err != nil {
		return nil, err
	}
	return WrapConfig(ctx, c.bridge, h)
}

func (c *Config) walk(ctx context.Context, path string) (*Config, string, error) {
	parts := strings.Split(path, ".")
	cur := c
	for _, part := range parts[:len(parts)-1] {
		next, err := cur.Sub(ctx, part)
		if err != nil {
			return nil, "", errors.WithMessagef(err, "resolving %q", path)
		}
		cur = next
	}
	return cur, parts[len(parts)-1], nil
}

// GetPath reads a dotted field path such as "extract.radius".
func (c *Config) GetPath(ctx context.Context, path string) (bridge.Value, error) {
	cfg, name, err := c.walk(ctx, path)
	if err != nil {
		return bridge.Value{}, err
	}
	return cfg.Get(ctx, name)
}

// SetPath writes a dotted field path such as "extract.radius".
func (c *Config) SetPath(ctx context.Context, path string, value interface{}) error {
	cfg, name, err := c.walk(ctx, path)
	if err != nil {
		return err
	}
	return cfg.Set(ctx, name, value)
}
