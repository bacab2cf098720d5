package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/classkit/internal/engine"
	"github.com/roach88/classkit/internal/ir"
)

// CallOptions holds flags for the call command.
type CallOptions struct {
	*RootOptions
	Args     string // JSON array of method arguments
	CtorArgs string // JSON array of constructor arguments
	Static   bool
	Database string
}

// CallResult is the JSON payload of the call command.
type CallResult struct {
	Class  string     `json:"class"`
	Method string     `json:"method"`
	Static bool       `json:"static"`
	RunID  string     `json:"run_id,omitempty"`
	Args   ir.IRArray `json:"args"`
	Result ir.IRValue `json:"result"`
}

// NewCallCommand creates the call command.
func NewCallCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CallOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "call <specs> <class> <method>",
		Short: "Call a public method on a fresh instance or on the class",
		Long: `Call a public member.

Without --static a fresh instance is constructed from --ctor-args and the
method is called on it. With --static the member is looked up on the
class itself. Only public members are reachable; private and protected
members report UNKNOWN_METHOD.

Example:
  classkit call ./specs Duck quack --ctor-args '["larry"]' --args '[2]'
  classkit call ./specs Duck isAnimal --static`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCall(opts, args[0], args[1], args[2], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Args, "args", "[]", "method arguments as a JSON array")
	cmd.Flags().StringVar(&opts.CtorArgs, "ctor-args", "[]", "constructor arguments as a JSON array")
	cmd.Flags().BoolVar(&opts.Static, "static", false, "call a static member of the class")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database for the construction run")

	return cmd
}

func runCall(opts *CallOptions, specsPath, className, method string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	invalid := string(engine.ErrCodeInvalidArgument)

	args, err := parseArgs("args", opts.Args)
	if err != nil {
		return formatter.Fail(ExitCommandError, invalid, err)
	}
	ctorArgs, err := parseArgs("ctor-args", opts.CtorArgs)
	if err != nil {
		return formatter.Fail(ExitCommandError, invalid, err)
	}

	var engineOpts []engine.Option
	if opts.Database != "" {
		st, err := openStore(opts.Database, false)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
		}
		defer closeStore(st)
		persist, err := storeOptions(commandContext(cmd), st)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
		}
		engineOpts = append(engineOpts, persist...)
	}

	eng, err := loadEngine(specsPath, engineOpts...)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
	}

	ctx := commandContext(cmd)
	result := CallResult{Class: className, Method: method, Static: opts.Static, Args: args}
	if opts.Static {
		result.Result, err = eng.CallStatic(ctx, className, method, args)
	} else {
		var inst *engine.Instance
		inst, err = eng.Instantiate(ctx, className, ctorArgs)
		if err == nil {
			result.RunID = inst.RunID
			result.Result, err = eng.Call(ctx, inst, method, args)
		}
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
	}
	if result.Result == nil {
		result.Result = ir.IRNull{}
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	target := className + "." + method
	if !opts.Static {
		target = fmt.Sprintf("%s(%s).%s", className, renderValue(ctorArgs), method)
	}
	fmt.Fprintf(formatter.Writer, "%s(%s) = %s\n", target, renderValue(args), renderValue(result.Result))
	return nil
}
