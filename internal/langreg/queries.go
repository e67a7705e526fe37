package langreg

// Query strings follow the capture-name convention documented in
// internal/grammar: @function.name, @method.name, @class.name,
// @interface.name, @variable.name, @const.name, @import.name,
// @import.src for definitions; @branch for every complexity-adding
// node. Baseline languages (go, python, typescript, javascript) get a
// full set; extended-family languages get a reduced set sufficient for
// internal/analysis.ExtendedFamily (dead code, unused imports,
// complexity, function length only, no naming/framework rules).

const goDefsQuery = `
(function_declaration name: (identifier) @function.name)
(method_declaration name: (field_identifier) @method.name)
(type_declaration (type_spec name: (type_identifier) @class.name type: (struct_type)))
(type_declaration (type_spec name: (type_identifier) @interface.name type: (interface_type)))
(const_spec name: (identifier) @const.name)
(var_spec name: (identifier) @variable.name)
(import_spec name: (_) @import.name)
(import_spec !name path: (interpreted_string_literal) @import.src)
`

const goBranchQuery = `
[
  (if_statement)
  (for_statement)
  (expression_switch_statement)
  (type_switch_statement)
  (communication_case)
  (expression_case)
  (default_case)
  (binary_expression operator: "&&")
  (binary_expression operator: "||")
] @branch
`

const goFuncQuery = `
[
  (function_declaration)
  (method_declaration)
] @function
`

const goCallQuery = `
(call_expression function: (identifier) @call.callee)
(call_expression function: (selector_expression field: (field_identifier) @call.callee))
`

const pyDefsQuery = `
(function_definition name: (identifier) @function.name)
(class_definition name: (identifier) @class.name)
(assignment left: (identifier) @variable.name)
(import_statement name: (dotted_name) @import.src)
(import_from_statement module_name: (dotted_name) @import.src)
(import_from_statement name: (dotted_name) @import.name)
`

const pyBranchQuery = `
[
  (if_statement)
  (elif_clause)
  (for_statement)
  (while_statement)
  (except_clause)
  (boolean_operator)
  (conditional_expression)
] @branch
`

const pyFuncQuery = `(function_definition) @function`

const pyCallQuery = `
(call function: (identifier) @call.callee)
(call function: (attribute attribute: (identifier) @call.callee))
`

const jsDefsQuery = `
(function_declaration name: (identifier) @function.name)
(method_definition name: (property_identifier) @method.name)
(class_declaration name: (identifier) @class.name)
(variable_declarator name: (identifier) @variable.name value: (arrow_function)) @function.name
(variable_declarator name: (identifier) @variable.name)
(import_specifier name: (identifier) @import.name)
(import_statement source: (string) @import.src)
`

const jsBranchQuery = `
[
  (if_statement)
  (for_statement)
  (for_in_statement)
  (while_statement)
  (do_statement)
  (switch_case)
  (catch_clause)
  (ternary_expression)
  (binary_expression operator: "&&")
  (binary_expression operator: "||")
] @branch
`

const jsFuncQuery = `
[
  (function_declaration)
  (method_definition)
  (arrow_function)
] @function
`

const jsCallQuery = `
(call_expression function: (identifier) @call.callee)
(call_expression function: (member_expression property: (property_identifier) @call.callee))
`

// TypeScript shares JavaScript's grammar shape closely enough that the
// same capture names apply; interfaces and type aliases are additions.
const tsDefsQuery = `
(function_declaration name: (identifier) @function.name)
(method_definition name: (property_identifier) @method.name)
(class_declaration name: (type_identifier) @class.name)
(interface_declaration name: (type_identifier) @interface.name)
(variable_declarator name: (identifier) @variable.name value: (arrow_function)) @function.name
(variable_declarator name: (identifier) @variable.name)
(import_specifier name: (identifier) @import.name)
(import_statement source: (string) @import.src)
`

const tsBranchQuery = `
[
  (if_statement)
  (for_statement)
  (for_in_statement)
  (while_statement)
  (do_statement)
  (switch_case)
  (catch_clause)
  (ternary_expression)
  (binary_expression operator: "&&")
  (binary_expression operator: "||")
] @branch
`

const tsFuncQuery = `
[
  (function_declaration)
  (method_definition)
  (arrow_function)
] @function
`

const tsCallQuery = `
(call_expression function: (identifier) @call.callee)
(call_expression function: (member_expression property: (property_identifier) @call.callee))
`

// --- Extended family: generic dead-code/unused-import/complexity
// support only, no framework or naming rules. Queries deliberately
// capture function- and
// import-like constructs under the same names so analysis.ExtendedFamily
// can stay language-agnostic.

const rustDefsQuery = `
(function_item name: (identifier) @function.name)
(struct_item name: (type_identifier) @class.name)
(trait_item name: (type_identifier) @interface.name)
(use_declaration argument: (identifier) @import.src)
(use_declaration argument: (scoped_identifier) @import.src)
`

const rustBranchQuery = `
[
  (if_expression)
  (match_arm)
  (while_expression)
  (loop_expression)
  (binary_expression operator: "&&")
  (binary_expression operator: "||")
] @branch
`

const rustFuncQuery = `(function_item) @function`

const javaDefsQuery = `
(method_declaration name: (identifier) @function.name)
(class_declaration name: (identifier) @class.name)
(interface_declaration name: (identifier) @interface.name)
(import_declaration (scoped_identifier) @import.src)
`

const javaBranchQuery = `
[
  (if_statement)
  (for_statement)
  (enhanced_for_statement)
  (while_statement)
  (switch_label)
  (catch_clause)
  (ternary_expression)
  (binary_expression operator: "&&")
  (binary_expression operator: "||")
] @branch
`

const javaFuncQuery = `(method_declaration) @function`

const csharpDefsQuery = `
(method_declaration name: (identifier) @function.name)
(class_declaration name: (identifier) @class.name)
(interface_declaration name: (identifier) @interface.name)
(using_directive (identifier) @import.src)
(using_directive (qualified_name) @import.src)
`

const csharpBranchQuery = `
[
  (if_statement)
  (for_statement)
  (foreach_statement)
  (while_statement)
  (switch_section)
  (catch_clause)
  (conditional_expression)
  (binary_expression)
] @branch
`

const csharpFuncQuery = `(method_declaration) @function`

const cppDefsQuery = `
(function_definition declarator: (function_declarator declarator: (identifier) @function.name))
(class_specifier name: (type_identifier) @class.name)
(preproc_include path: (string_literal) @import.src)
(preproc_include path: (system_lib_string) @import.src)
`

const cppBranchQuery = `
[
  (if_statement)
  (for_statement)
  (while_statement)
  (do_statement)
  (case_statement)
  (catch_clause)
  (conditional_expression)
] @branch
`

const cppFuncQuery = `(function_definition) @function`

const phpDefsQuery = `
(function_definition name: (name) @function.name)
(method_declaration name: (name) @method.name)
(class_declaration name: (name) @class.name)
(interface_declaration name: (name) @interface.name)
(namespace_use_clause (qualified_name) @import.src)
`

const phpBranchQuery = `
[
  (if_statement)
  (for_statement)
  (foreach_statement)
  (while_statement)
  (case_statement)
  (catch_clause)
  (conditional_expression)
] @branch
`

const phpFuncQuery = `
[
  (function_definition)
  (method_declaration)
] @function
`

const zigDefsQuery = `
(function_declaration name: (identifier) @function.name)
(variable_declaration name: (identifier) @const.name)
(builtin_function name: "@import") @import.src
`

const zigBranchQuery = `
[
  (if_expression)
  (while_expression)
  (for_expression)
  (switch_expression)
] @branch
`

const zigFuncQuery = `(function_declaration) @function`
