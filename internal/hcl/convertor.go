package hcl

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/assetpipe/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

var durationType = reflect.TypeOf(time.Duration(0))

// Converter binds evaluated HCL attributes onto tagged Go struct fields.
type Converter struct{}

// NewConverter creates a new HCL converter.
func NewConverter() *Converter {
	return &Converter{}
}

// DecodeBody evaluates each attribute and writes it into the field of target
// whose `hcl` tag matches the attribute name. Fields without a matching
// attribute keep their current value, which is how defaults survive.
// Attributes that match no field are rejected.
func (c *Converter) DecodeBody(
	ctx context.Context,
	target any,
	attrs hcl.Attributes,
	evalCtx *hcl.EvalContext,
) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Starting HCL body decoding.", "target", fmt.Sprintf("%T", target))

	structVal := reflect.ValueOf(target)
	if structVal.Kind() != reflect.Ptr || structVal.IsNil() {
		return fmt.Errorf("target must be a non-nil pointer")
	}
	structVal = structVal.Elem()
	structType := structVal.Type()

	fields := make(map[string]int, structType.NumField())
	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		tag := field.Tag.Get("hcl")
		if tag == "" || tag == "-" {
			continue
		}
		fields[strings.Split(tag, ",")[0]] = i
	}

	// Sorted so that the first reported error is deterministic.
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		attr := attrs[name]
		idx, ok := fields[name]
		if !ok {
			return fmt.Errorf("%s: unsupported argument %q", attr.NameRange, name)
		}

		val, diags := attr.Expr.Value(evalCtx)
		if diags.HasErrors() {
			return diags
		}
		fieldVal := structVal.Field(idx)
		if err := c.decode(ctx, val, fieldVal.Addr().Interface()); err != nil {
			return fmt.Errorf("%s: failed to decode argument '%s': %w", attr.NameRange, name, err)
		}
	}

	logger.Debug("Finished HCL body decoding successfully.", "attributes", len(names))
	return nil
}

// decode handles the conversion and decoding of a cty.Value into a Go pointer.
func (c *Converter) decode(ctx context.Context, val cty.Value, goVal any) error {
	logger := ctxlog.FromContext(ctx)
	valPtr := reflect.ValueOf(goVal)
	if valPtr.Kind() != reflect.Ptr {
		return fmt.Errorf("target for decoding must be a pointer, got %T", goVal)
	}
	if val.IsNull() {
		return fmt.Errorf("value must not be null")
	}

	// Durations are written as strings ("100ms") in configuration files.
	if valPtr.Elem().Type() == durationType {
		strVal, err := convert.Convert(val, cty.String)
		if err != nil {
			return fmt.Errorf("duration must be a string: %w", err)
		}
		d, err := time.ParseDuration(strVal.AsString())
		if err != nil {
			return err
		}
		valPtr.Elem().SetInt(int64(d))
		return nil
	}

	impliedType, err := gocty.ImpliedType(valPtr.Elem().Interface())
	if err != nil {
		logger.Debug("Could not imply cty.Type from Go type, attempting direct decoding.", "go_type", valPtr.Elem().Type().String(), "error", err)
		return gocty.FromCtyValue(val, goVal)
	}

	convertedVal, err := convert.Convert(val, impliedType)
	if err != nil {
		return fmt.Errorf("cannot convert %s to required type %s: %w", val.Type().FriendlyName(), impliedType.FriendlyName(), err)
	}

	if !val.Type().Equals(convertedVal.Type()) {
		logger.Debug("Implicitly converted value type.",
			"from", val.Type().FriendlyName(),
			"to", convertedVal.Type().FriendlyName(),
		)
	}

	return gocty.FromCtyValue(convertedVal, goVal)
}
