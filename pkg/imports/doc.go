// Package imports extracts module specifiers from TypeScript and JavaScript
// source text.
//
// [Parse] is the dependency parser handed to an acquisition session; it
// recognizes the usual ways a file pulls in another module:
//
//	import React from "react"
//	import type { Props } from "@scope/ui"
//	import "reflect-metadata"
//	export * from "rxjs"
//	const fs = require("fs")
//	const m = await import("lodash/fp")
//	/// <reference types="node" />
//
// Relative specifiers never name a package and are dropped. Ambient module
// declarations (declare module "x") declare rather than import, and are
// ignored.
//
// [RemapModuleName] folds specifiers onto the package that serves their
// declarations: Node builtins map to "node" (whose types live in
// @types/node) and deep imports map to their package.
package imports
