package worker

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/boofbridge/bridge"
)

// Registered configuration classes.
const (
	ClassConfigExtract     = "boofcv.abst.feature.detect.extract.ConfigExtract"
	ClassConfigFastHessian = "boofcv.abst.feature.detect.interest.ConfigFastHessian"
	ClassConfigSurfSpeed   = "boofcv.abst.feature.describe.ConfigSurfDescribe.Speed"
)

type configField struct {
	name  string
	value bridge.Value
}

// configObject is a remote configuration: an ordered set of typed public fields, some of which
// may be handles to nested configurations.
type configObject struct {
	class  string
	fields []configField
}

var configClasses = map[string]func(w *Worker) *configObject{
	ClassConfigExtract: func(*Worker) *configObject {
		return newConfigExtract(2, 0, 0)
	},
	ClassConfigFastHessian: func(w *Worker) *configObject {
		extract := newConfigExtract(2, 1, 5)
		return &configObject{class: ClassConfigFastHessian, fields: []configField{
			{"extract", bridge.HandleValue(w.add(ClassConfigExtract, extract))},
			{"maxFeaturesPerScale", bridge.IntValue(-1)},
			{"initialSampleStep", bridge.IntValue(1)},
			{"initialSize", bridge.IntValue(9)},
			{"numberScalesPerOctave", bridge.IntValue(4)},
			{"numberOfOctaves", bridge.IntValue(4)},
		}}
	},
	ClassConfigSurfSpeed: func(*Worker) *configObject {
		return &configObject{class: ClassConfigSurfSpeed, fields: []configField{
			{"weightSigma", bridge.FloatValue(4.5)},
			{"widthLargeGrid", bridge.IntValue(4)},
			{"widthSubRegion", bridge.IntValue(5)},
			{"widthSample", bridge.FloatValue(3)},
			{"useHaar", bridge.BoolValue(false)},
		}}
	},
}

func newConfigExtract(radius int64, threshold float64, ignoreBorder int64) *configObject {
	return &configObject{class: ClassConfigExtract, fields: []configField{
		{"radius", bridge.IntValue(radius)},
		{"threshold", bridge.FloatValue(threshold)},
		{"ignoreBorder", bridge.IntValue(ignoreBorder)},
		{"useStrictRule", bridge.BoolValue(true)},
		{"detectMinimums", bridge.BoolValue(false)},
		{"detectMaximums", bridge.BoolValue(true)},
	}}
}

func (c *configObject) String() string {
	parts := lo.Map(c.fields, func(f configField, _ int) string {
		return fmt.Sprintf("%s=%v", f.name, f.value)
	})
	return fmt.Sprintf("%s{%s}", c.class[strings.LastIndex(c.class, ".")+1:], strings.Join(parts, ", "))
}

func (c *configObject) field(name string) (*configField, error) {
	for i := range c.fields {
		if c.fields[i].name == name {
			return &c.fields[i], nil
		}
	}
	return nil, errors.Wrapf(ErrNoSuchField, "%s on %s", name, c.class)
}

func (c *configObject) get(name string) (bridge.Value, error) {
	f, err := c.field(name)
	if err != nil {
		return bridge.Value{}, err
	}
	return f.value, nil
}

// set replaces a field value. The new value must have the field's kind, except that integers
// may be assigned to float fields.
func (c *configObject) set(name string, v bridge.Value) error {
	f, err := c.field(name)
	if err != nil {
		return err
	}
	want := f.value.Kind()
	switch {
	case v.Kind() == want:
	case want == bridge.KindFloat && v.Kind() == bridge.KindInt:
		fv, _ := v.AsFloat()
		v = bridge.FloatValue(fv)
	default:
		return errors.Errorf("field %s of %s is %v, cannot assign %v", name, c.class, want, v.Kind())
	}
	if want == bridge.KindHandle {
		cur, _ := f.value.AsHandle()
		next, _ := v.AsHandle()
		if cur.Class != next.Class {
			return errors.Errorf("field %s of %s holds %s, cannot assign %s", name, c.class, cur.Class, next.Class)
		}
	}
	f.value = v
	return nil
}
